package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/netscope-network/netscope/pkg/cli"
	"github.com/netscope-network/netscope/pkg/config"
)

func newJumphostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jumphost",
		Short: "Configure the SSH jumphost",
		Long: `All device sessions are tunneled through the jumphost when it is
enabled, and its credentials become the device credentials. Saving a
change invalidates any shared tunnel so the next connect picks it up.`,
	}
	cmd.AddCommand(newJumphostShowCmd(), newJumphostSetCmd(),
		newJumphostEnableCmd(true), newJumphostEnableCmd(false))
	return cmd
}

func newJumphostShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the jumphost configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			src := config.NewSource(app.jumphostPath)
			cfg := src.Current()

			state := cli.Red("disabled")
			if cfg.Enabled {
				state = cli.Green("enabled")
			}
			fmt.Printf("jumphost: %s\n", state)
			if cfg.Host != "" {
				fmt.Printf("  host:     %s:%d\n", cfg.Host, cfg.Port)
				fmt.Printf("  username: %s\n", cfg.Username)
				fmt.Printf("  password: %s\n", maskPassword(cfg.Password))
			}
			return nil
		},
	}
}

func maskPassword(p string) string {
	if p == "" {
		return "(not set)"
	}
	return "********"
}

func newJumphostSetCmd() *cobra.Command {
	var (
		host     string
		port     int
		username string
		enable   bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set jumphost connection details",
		Long: `Set stores the jumphost record. The password is prompted for
interactively and never echoed.

  netscope jumphost set --host jump1.example.net --username netops --enable`,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := config.NewSource(app.jumphostPath)
			cfg := src.Current()

			if host != "" {
				cfg.Host = host
			}
			if port != 0 {
				cfg.Port = port
			}
			if username != "" {
				cfg.Username = username
			}
			if enable {
				cfg.Enabled = true
			}
			if cfg.Host == "" {
				return fmt.Errorf("jumphost host is required")
			}

			fmt.Printf("Password for %s@%s: ", cfg.Username, cfg.Host)
			password, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if len(password) > 0 {
				cfg.Password = string(password)
			}

			if err := src.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "Jumphost configuration saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Jumphost address")
	cmd.Flags().IntVar(&port, "port", 0, "Jumphost SSH port (default 22)")
	cmd.Flags().StringVar(&username, "username", "", "Jumphost username")
	cmd.Flags().BoolVar(&enable, "enable", false, "Enable the jumphost as well")
	return cmd
}

func newJumphostEnableCmd(enable bool) *cobra.Command {
	use, short := "enable", "Enable jumphost tunneling"
	if !enable {
		use, short = "disable", "Disable jumphost tunneling"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := config.NewSource(app.jumphostPath)
			cfg := src.Current()
			if enable && cfg.Host == "" {
				return fmt.Errorf("configure a jumphost host first: netscope jumphost set --host ...")
			}
			cfg.Enabled = enable
			if err := src.Save(cfg); err != nil {
				return err
			}
			fmt.Printf("Jumphost %sd\n", use)
			return nil
		},
	}
}
