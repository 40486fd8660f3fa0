package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gstoney/mcengine"
	"github.com/gstoney/mcengine/internal/config"
	"github.com/gstoney/mcengine/internal/logging"
	"github.com/gstoney/mcengine/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, envFile)
			if err != nil {
				return err
			}
			logging.Init(cfg.Log)

			status := mcengine.StaticStatus{
				Description: cfg.Server.MOTD,
				MaxPlayers:  cfg.Server.MaxPlayers,
			}
			if cfg.Server.Favicon != "" {
				png, err := os.ReadFile(cfg.Server.Favicon)
				if err != nil {
					return fmt.Errorf("read favicon: %w", err)
				}
				status.Favicon = mcengine.FaviconDataURI(png)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &mcengine.Server{
				Addr:   cfg.Server.Addr,
				Status: status,
				Login: mcengine.LoginConfig{
					Encryption:           cfg.Login.Encryption,
					Compression:          cfg.Login.CompressionThreshold >= 0,
					CompressionThreshold: cfg.Login.CompressionThreshold,
				},
				Transport: mcengine.TransportConfig{
					MaxPacketLen:       cfg.Transport.MaxPacketLen,
					MaxDecompressedLen: cfg.Transport.MaxDecompressedLen,
				},
				AcceptRate:  rate.Limit(cfg.Server.AcceptRate),
				AcceptBurst: cfg.Server.AcceptBurst,
				QueueSize:   cfg.Server.QueueSize,
			}
			lobby := newLobby(srv)
			srv.Handler = lobby

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				err := srv.ListenAndServe(gctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			g.Go(func() error {
				lobby.keepAlive(gctx)
				return nil
			})
			if cfg.Metrics.Addr != "" {
				g.Go(func() error {
					log.Info().Str("addr", cfg.Metrics.Addr).Msg("serving metrics")
					return observability.Serve(gctx, cfg.Metrics.Addr)
				})
			}

			err = g.Wait()
			srv.Close()
			log.Info().Msg("server stopped")
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	cmd.Flags().StringVar(&envFile, "env", ".env", "path to a .env file")
	return cmd
}
