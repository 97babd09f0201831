package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rostra-network/rostra/internal/headcheck"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/rlog"
	"github.com/rostra-network/rostra/internal/rmetrics"
	"github.com/rostra-network/rostra/internal/rpc"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the node: serve the RPC surface and check followees for new events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("listen-addr"); addr != "" {
			cfg.ListenAddr = addr
		}

		peerAddrs, _ := cmd.Flags().GetStringArray("peer")
		addrBook, err := parsePeerAddrs(peerAddrs)
		if err != nil {
			return err
		}

		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		store, facade, id, err := openNode(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		logger := rlog.WithComponent("serve")
		logger.Info().Str("rostra_id", id.RostraId.String()).Str("listen_addr", cfg.ListenAddr).Msg("starting node")

		ln, err := net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
		}
		defer ln.Close()

		server := rpc.NewTCPServer(facade)
		go func() {
			if err := server.Serve(ln); err != nil {
				logger.Info().Err(err).Msg("rpc server stopped")
			}
		}()

		if metricsAddr != "" {
			go func() {
				if err := http.ListenAndServe(metricsAddr, rmetrics.Handler()); err != nil {
					logger.Warn().Err(err).Msg("metrics server stopped")
				}
			}()
			fmt.Printf("Metrics available at http://%s/metrics\n", metricsAddr)
		}

		dialer := rpc.TCPDialer{
			MaxRequestSize:  cfg.MaxRequestSize,
			MaxResponseSize: cfg.MaxResponseSize,
		}
		checker := headcheck.New(facade, dialer, func(author ids.RostraId) (string, bool) {
			addr, ok := addrBook[author]
			return addr, ok
		}, cfg.HeadCheckInterval)
		checker.Start()
		defer checker.Stop()

		fmt.Println("Rostra node is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nShutting down...")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("listen-addr", "", "Override the configured RPC listen address")
	serveCmd.Flags().String("metrics-addr", "", "Address to serve Prometheus metrics on, e.g. 127.0.0.1:9090 (disabled if empty)")
	serveCmd.Flags().StringArray("peer", nil, "Known followee address as rostra-id=host:port, repeatable")
}

func parsePeerAddrs(entries []string) (map[ids.RostraId]string, error) {
	book := make(map[ids.RostraId]string, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed --peer %q, expected rostra-id=host:port", entry)
		}
		author, err := ids.ParseRostraId(parts[0])
		if err != nil {
			return nil, fmt.Errorf("--peer %q: %w", entry, err)
		}
		book[author] = parts[1]
	}
	return book, nil
}
