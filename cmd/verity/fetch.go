package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/quic-go/quic-go"
	"github.com/spf13/cobra"
	"github.com/verity-engine/verity/vcast"
	"github.com/verity-engine/verity/vmerkle/vmsha256"
	"github.com/verity-engine/verity/vtree"
)

// fetchBatchSize caps how many blocks one multiproof request covers.
const fetchBatchSize = 1024

func newFetchCommand() *cobra.Command {
	var (
		addr     string
		rootHex  string
		outFile  string
		caFile   string
		insecure bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and verify an archive, writing the reassembled data",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))

			var wantRoot []byte
			if rootHex != "" {
				var err error
				wantRoot, err = hex.DecodeString(rootHex)
				if err != nil {
					return fmt.Errorf("failed to decode root: %w", err)
				}
				if len(wantRoot) != vmsha256.HashSize {
					return fmt.Errorf(
						"root must be %d bytes, got %d", vmsha256.HashSize, len(wantRoot),
					)
				}
			}

			tlsConf, err := clientTLSConfig(caFile, insecure)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(
				context.Background(), os.Interrupt, syscall.SIGTERM,
			)
			defer cancel()

			conn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
			if err != nil {
				return fmt.Errorf("failed to dial holder: %w", err)
			}
			defer conn.CloseWithError(0, "done")

			c := vcast.NewClient(vcast.ClientConfig{
				Conn: conn,

				ProtocolID: protocolID,

				Scheme: vtree.Scheme{
					Hasher:   vmsha256.Hasher{},
					HashSize: vmsha256.HashSize,
				},
			})

			info, err := c.FetchRoot(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch root: %w", err)
			}

			if wantRoot == nil {
				log.Warn(
					"No --root given; trusting the holder's reported root",
					"root", hex.EncodeToString(info.Root),
				)
			} else if !bytes.Equal(info.Root, wantRoot) {
				return fmt.Errorf(
					"holder's root %s does not match requested root %s",
					hex.EncodeToString(info.Root), rootHex,
				)
			}
			c.TrustRoot(info)

			blocks := make(map[int][]byte, info.NumData)
			for start := 0; start < info.NumData; start += fetchBatchSize {
				end := min(info.NumData, start+fetchBatchSize)
				indices := make([]int, 0, end-start)
				for i := start; i < end; i++ {
					indices = append(indices, i)
				}

				batch, err := c.FetchBlocks(ctx, indices)
				if err != nil {
					return fmt.Errorf("failed to fetch blocks %d..%d: %w", start, end-1, err)
				}
				for i, idx := range indices {
					blocks[idx] = batch[i]
				}
			}

			data, err := vcast.ReassembleData(info, blocks)
			if err != nil {
				return fmt.Errorf("failed to reassemble data: %w", err)
			}

			if outFile == "-" {
				if _, err := os.Stdout.Write(data); err != nil {
					return fmt.Errorf("failed to write data: %w", err)
				}
			} else {
				if err := os.WriteFile(outFile, data, 0o644); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
			}

			log.Info(
				"Fetched and verified archive",
				"root", hex.EncodeToString(info.Root),
				"bytes", len(data),
				"blocks", c.ReceivedCount(),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:28441", "holder address to dial")
	cmd.Flags().StringVar(&rootHex, "root", "", "expected root in hex (trust on first use if unset)")
	cmd.Flags().StringVar(&outFile, "out", "-", "output file, or - for stdout")
	cmd.Flags().StringVar(&caFile, "ca", "", "PEM file with CAs to verify the holder's certificate")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")

	return cmd
}
