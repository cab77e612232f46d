package commands

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecbucket/blobstore/s3"
	"github.com/hupe1980/vecbucket/dataset"
)

var (
	genOut         string
	genCompression string
	genUpload      string
	genPrefix      string
	genConfig      dataset.SyntheticConfig
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic dataset",
	Long: `Generate clustered unit vectors, queries, binary sketches and exact
ground truth, and write them as vecs files.

Example:
  vecbucket generate --out ./data/synth --n 100000 --dim 64 --sketch-bits 128 --compression zstd

  # Also upload the files to S3
  vecbucket generate --out ./data/synth --upload my-datasets --prefix synth`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if genOut == "" {
			return fmt.Errorf("output directory is required, use --out flag")
		}
		c, err := dataset.ParseCompression(genCompression)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		d, err := dataset.Synthetic(ctx, genConfig)
		if err != nil {
			return err
		}
		layout := dataset.DefaultLayout(c)
		if err := dataset.Save(genOut, d, layout); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d vectors and %d queries to %s\n", d.Data.Rows(), d.Queries.Rows(), genOut)

		if genUpload == "" {
			return nil
		}
		store, err := s3.New(ctx, genUpload)
		if err != nil {
			return err
		}
		for _, name := range layout.Files() {
			data, err := os.ReadFile(filepath.Join(genOut, name))
			if os.IsNotExist(err) {
				continue
			}
			if err != nil {
				return err
			}
			key := path.Join(genPrefix, name)
			if err := store.Put(ctx, key, data); err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded s3://%s/%s\n", genUpload, key)
		}
		return nil
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genOut, "out", "", "output directory")
	f.StringVar(&genCompression, "compression", "none", "file compression (none, zstd, lz4)")
	f.StringVar(&genUpload, "upload", "", "S3 bucket to upload the files to")
	f.StringVar(&genPrefix, "prefix", "", "key prefix for uploaded files")
	f.IntVar(&genConfig.N, "n", 10000, "number of base vectors")
	f.IntVar(&genConfig.Queries, "queries", 100, "number of queries")
	f.IntVar(&genConfig.Dim, "dim", 32, "vector dimension")
	f.IntVar(&genConfig.Clusters, "clusters", 16, "number of clusters")
	f.Float32Var(&genConfig.Spread, "spread", 0.1, "cluster spread")
	f.IntVar(&genConfig.SketchBits, "sketch-bits", 0, "sketch length in bits (multiple of 8, 0 disables)")
	f.IntVar(&genConfig.K, "k", 10, "ground-truth depth (0 disables)")
	f.Int64Var(&genConfig.Seed, "seed", 1, "random seed")
	rootCmd.AddCommand(generateCmd)
}
