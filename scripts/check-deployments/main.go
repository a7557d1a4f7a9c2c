// check-deployments: re-checks every recorded deployment in parallel. For
// each record it confirms the vault still has code and still holds its roles
// on the token, then prints a summary table.
//
// Run from the module root:
//
//	go run ./scripts/check-deployments [path/to/deployments.json]
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/vaultctl/internal/chain"
	"github.com/Mohsinsiddi/vaultctl/internal/contract"
	"github.com/Mohsinsiddi/vaultctl/internal/deploy"
	"github.com/Mohsinsiddi/vaultctl/internal/ui"
)

const (
	rpcTimeout  = 12 * time.Second
	maxParallel = 8
)

type result struct {
	profile string
	chainID uint64
	vault   string
	code    string
	roles   string
	err     string
}

func main() {
	path := filepath.Join(os.Getenv("HOME"), ".vaultctl", "deployments.json")
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	reg := contract.NewRegistry(path)
	if err := reg.Load(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	networks := chain.NewRegistry()

	// Each goroutine owns one slot; failures are reported per row.
	recs := reg.All()
	results := make([]result, len(recs))
	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, rec := range recs {
		g.Go(func() error {
			results[i] = check(networks, rec)
			return nil
		})
	}
	_ = g.Wait()

	printTable(results)
}

func check(networks *chain.Registry, rec *contract.Record) result {
	r := result{profile: rec.Profile, chainID: rec.ChainID, vault: shortAddr(rec.Vault), code: "-", roles: "-"}

	n, err := networks.GetByName(rec.Network)
	if err != nil || len(n.RPCs) == 0 {
		r.err = "no rpc for " + rec.Network
		return r
	}

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	client := chain.NewEVMClient(n.RPCs[0])
	if _, _, err := client.Ping(ctx); err != nil {
		r.err = "unreachable"
		return r
	}

	vault := common.HexToAddress(rec.Vault)
	code, err := client.CodeAt(ctx, vault)
	switch {
	case err != nil:
		r.err = shortErr(err)
		return r
	case len(code) == 0:
		r.code = "missing"
		return r
	}
	r.code = "ok"

	status, err := deploy.CheckRoles(ctx, contract.NewCaller(client, common.Address{}), rec.Roles,
		common.HexToAddress(rec.Token), vault)
	if err != nil {
		r.err = shortErr(err)
		return r
	}
	var held []string
	for _, s := range status {
		if s.Held {
			held = append(held, s.Role)
		} else {
			r.err = "missing " + s.Role
		}
	}
	r.roles = strings.Join(held, ",")
	return r
}

func printTable(results []result) {
	slices.SortFunc(results, func(a, b result) int {
		if c := strings.Compare(a.profile, b.profile); c != 0 {
			return c
		}
		return cmp.Compare(a.chainID, b.chainID)
	})

	t := ui.NewTable([]ui.Column{
		{Title: "Profile"},
		{Title: "Chain"},
		{Title: "Vault", Width: 13},
		{Title: "Code", Width: 7},
		{Title: "Roles"},
		{Title: "Note", Width: 32},
	})
	for _, r := range results {
		code := r.code
		if code == "ok" {
			code = ui.StyleSuccess.Render(code)
		}
		t.AddRow(ui.Row{r.profile, strconv.FormatUint(r.chainID, 10), r.vault, code, r.roles, ui.Meta(r.err)})
	}
	fmt.Print(t.Render())
}

func shortAddr(addr string) string { return ui.TruncateAddr(addr) }

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}
