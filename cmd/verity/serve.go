package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/quic-go/quic-go"
	"github.com/spf13/cobra"
	"github.com/verity-engine/verity/vcast"
	"github.com/verity-engine/verity/vmerkle/vmsha256"
	"github.com/verity-engine/verity/vtree"
)

// protocolID is the first byte of every request stream.
const protocolID byte = 0x76

func newServeCommand() *cobra.Command {
	var (
		listenAddr string
		chunkSize  int
		parity     float32
		certFile   string
		keyFile    string
	)

	cmd := &cobra.Command{
		Use:   "serve FILE",
		Short: "Commit a file and serve its blocks until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read input file: %w", err)
			}

			archive, err := vcast.PrepareArchive(data, vcast.PrepareArchiveConfig{
				MaxChunkSize: chunkSize,
				ParityRatio:  parity,

				Scheme: vtree.Scheme{
					Hasher:   vmsha256.Hasher{},
					HashSize: vmsha256.HashSize,
				},
			})
			if err != nil {
				return fmt.Errorf("failed to prepare archive: %w", err)
			}

			info := archive.Info()
			fmt.Printf("root: %s\n", hex.EncodeToString(info.Root))
			fmt.Printf("blocks: %d data + %d parity, %d bytes\n",
				info.NumData, info.NumParity, info.DataSize)

			tlsConf, err := serverTLSConfig(certFile, keyFile)
			if err != nil {
				return err
			}

			udpAddr, err := net.ResolveUDPAddr("udp", listenAddr)
			if err != nil {
				return fmt.Errorf("failed to resolve listen address: %w", err)
			}
			udpConn, err := net.ListenUDP("udp", udpAddr)
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}
			defer udpConn.Close()

			qt := &quic.Transport{
				Conn: udpConn,
			}
			defer qt.Close()

			ql, err := qt.Listen(tlsConf, nil)
			if err != nil {
				return fmt.Errorf("failed to set up QUIC listener: %w", err)
			}
			defer ql.Close()

			ctx, cancel := signal.NotifyContext(
				context.Background(), os.Interrupt, syscall.SIGTERM,
			)
			defer cancel()

			log.Info(
				"Serving archive",
				"addr", ql.Addr().String(),
				"root", hex.EncodeToString(info.Root),
			)

			h := vcast.NewHolder(ctx, log, vcast.HolderConfig{
				Listener: ql,
				Archive:  archive,

				ProtocolID: protocolID,
			})

			<-ctx.Done()
			log.Info("Shutting down")
			h.Wait()
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:28441", "UDP address to listen on")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 64*1024, "maximum block size in bytes")
	cmd.Flags().Float32Var(&parity, "parity", 0.25, "ratio of parity blocks to data blocks")
	cmd.Flags().StringVar(&certFile, "cert", "", "TLS certificate PEM file (ephemeral self-signed if unset)")
	cmd.Flags().StringVar(&keyFile, "key", "", "TLS key PEM file")

	return cmd
}
