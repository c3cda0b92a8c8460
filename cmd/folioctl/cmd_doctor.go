package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/folio-labs/folioctl/client"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long:  "Run diagnostic checks against config, gateway, and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func runDoctor() error {
	fmt.Println("\nfolioctl doctor")
	fmt.Println("===============")

	var results []checkResult

	// 1. Config file.
	_, cfgPath, cfgErr := loadConfigFile()
	if cfgErr != nil {
		results = append(results, checkResult{
			Name: "Config file", Passed: false,
			Detail: cfgPath,
			Hint:   "Run: folioctl init",
		})
	} else {
		results = append(results, checkResult{
			Name: "Config file", Passed: true,
			Detail: fmt.Sprintf("found (%s)", cfgPath),
		})
	}

	// Same precedence as the root command: flags, env, file.
	resolveConfig()

	// 2. Gateway URL.
	if flagURL == "" {
		results = append(results, checkResult{
			Name: "Gateway URL", Passed: false,
			Hint: "Set --url, FOLIOCTL_OKAPI_URL, or run folioctl init",
		})
	} else {
		results = append(results, checkResult{
			Name: "Gateway URL", Passed: true, Detail: flagURL,
		})
	}

	// 3. Tenant.
	if flagTenant == "" {
		results = append(results, checkResult{
			Name: "Tenant", Passed: false,
			Hint: "Set --tenant, FOLIOCTL_TENANT, or run folioctl init",
		})
	} else {
		results = append(results, checkResult{
			Name: "Tenant", Passed: true, Detail: flagTenant,
		})
	}

	// 4. Token.
	if flagToken == "" {
		results = append(results, checkResult{
			Name: "Token", Passed: false,
			Hint: "Set --token, FOLIOCTL_TOKEN, or run folioctl init",
		})
	} else {
		results = append(results, checkResult{
			Name: "Token", Passed: true, Detail: "configured",
		})
	}

	// 5. Credentials accepted by the gateway.
	if flagURL != "" && flagTenant != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c := client.New(flagURL, flagTenant,
			client.WithTokenProvider(client.StaticToken(flagToken)))
		if err := c.CheckCredentials(ctx); err != nil {
			hint := "Check the gateway URL and network"
			if client.IsAuthExpired(err) {
				hint = "Obtain a fresh token"
			}
			results = append(results, checkResult{
				Name: "Credentials", Passed: false,
				Detail: err.Error(), Hint: hint,
			})
		} else {
			results = append(results, checkResult{
				Name: "Credentials", Passed: true, Detail: "accepted",
			})
		}
	}

	fmt.Println()
	failed := 0
	for _, r := range results {
		mark := "✓"
		if !r.Passed {
			mark = "✗"
			failed++
		}
		line := fmt.Sprintf("  %s %s", mark, r.Name)
		if r.Detail != "" {
			line += ": " + r.Detail
		}
		fmt.Println(line)
		if !r.Passed && r.Hint != "" {
			fmt.Printf("      hint: %s\n", r.Hint)
		}
	}
	fmt.Println()

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	fmt.Println("All checks passed.")
	return nil
}
