package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/folio-labs/folioctl/client"
)

func newInitCmd() *cobra.Command {
	var (
		initURL    string
		initTenant string
		initToken  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up folioctl configuration",
		Long:  "Interactive setup wizard that creates ~/.folioctl/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			nonInteractive := initURL != "" || initTenant != "" || initToken != ""
			return runInit(initURL, initTenant, initToken, nonInteractive)
		},
	}

	cmd.Flags().StringVar(&initURL, "url", "", "Gateway URL (non-interactive mode)")
	cmd.Flags().StringVar(&initTenant, "tenant", "", "Tenant id (non-interactive mode)")
	cmd.Flags().StringVar(&initToken, "token", "", "Okapi token (non-interactive mode)")
	return cmd
}

func runInit(url, tenant, token string, nonInteractive bool) error {
	if !nonInteractive {
		fmt.Println("\n  folioctl setup")
		fmt.Println("  ──────────────")
		fmt.Println()

		reader := bufio.NewReader(os.Stdin)

		fmt.Print("  Gateway URL: ")
		line, _ := reader.ReadString('\n')
		url = strings.TrimSpace(line)

		fmt.Print("  Tenant id: ")
		line, _ = reader.ReadString('\n')
		tenant = strings.TrimSpace(line)

		fmt.Print("  Okapi token: ")
		line, _ = reader.ReadString('\n')
		token = strings.TrimSpace(line)
	}

	if url == "" || tenant == "" {
		return fmt.Errorf("gateway URL and tenant are required")
	}
	if token == "" {
		return fmt.Errorf("an Okapi token is required")
	}

	// Test the credentials before writing anything.
	if !nonInteractive {
		fmt.Print("\n  Testing connection... ")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c := client.New(url, tenant, client.WithTokenProvider(client.StaticToken(token)))
	if err := c.CheckCredentials(ctx); err != nil {
		if !nonInteractive {
			fmt.Println("✗")
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	if !nonInteractive {
		fmt.Println("✓")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".folioctl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	cfg := configFile{URL: url, Tenant: tenant, Token: token}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("\n  Wrote %s\n", path)
	fmt.Println("  Try: folioctl doctor")
	return nil
}
