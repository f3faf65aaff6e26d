package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"artframe/internal/caption"
	"artframe/internal/frame"
	"artframe/internal/geocache"
)

// NewRootCmd creates the root Cobra command
func NewRootCmd(root *Root) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "artframe",
		Short: "artframe serves captions for a digital picture frame",
		Long: `artframe reads EXIF metadata from a folder of images, resolves GPS
coordinates to addresses and serves caption documents to the frame display.`,
		SilenceUsage: true,
	}

	var folder string
	rootCmd.PersistentFlags().StringVar(&folder, "folder", "", "image folder (overrides gallery.folder)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if folder != "" {
			root.cfg.Gallery.Folder = folder
		}
		root.out = cmd.OutOrStdout()
	}

	rootCmd.AddCommand(newServeCmd(root))
	rootCmd.AddCommand(newScanCmd(root))
	rootCmd.AddCommand(newResolveCmd(root))
	rootCmd.AddCommand(newShowCmd(root))
	rootCmd.AddCommand(newCacheCmd(root))
	rootCmd.AddCommand(newConfigCmd(root))
	rootCmd.AddCommand(newVersionCmd(root))

	return rootCmd
}

func newServeCmd(root *Root) *cobra.Command {
	var (
		addr    string
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server with folder monitoring",
		Long: `Start an HTTP server that serves caption documents and pushes captions
to websocket clients as addresses are resolved. Local folders are watched
for new images.

Examples:
  artframe serve --addr :5000
  artframe serve --folder /data/frame --no-watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = root.cfg.Server.Addr
			}

			svc, err := root.service(ctx)
			if err != nil {
				return fmt.Errorf("failed to open gallery: %w", err)
			}
			defer svc.Close()

			if _, err := svc.Refresh(ctx, nil); err != nil {
				return fmt.Errorf("initial refresh: %w", err)
			}
			if !noWatch {
				if err := svc.Watch(ctx); err != nil {
					root.log.Warn("Failed to watch folder", "error", err)
				}
			}

			root.log.Info("server ready",
				"addr", addr,
				"folder", svc.Folder().URI(),
				"images", svc.Library().Len(),
			)
			return root.serveFn(ctx, addr, svc, root.log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "server address (default server.addr)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch the folder for new images")
	return cmd
}

func newScanCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Read metadata for every image in the folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := root.service(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			names, err := svc.Load(ctx, nil)
			if err != nil {
				return err
			}
			svc.MergeCache(ctx)

			lib := svc.Library()
			for _, name := range names {
				rec, _ := lib.Get(name)
				root.printf("%-32s %-10s %-24s %s\n",
					name,
					rec.State,
					caption.Camera(rec),
					caption.DateOriginal(rec, ""),
				)
			}
			root.printf("%s images in %s\n", humanize.Comma(int64(len(names))), svc.Folder().URI())
			return nil
		},
	}
}

func newResolveCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve addresses for every image and update the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := root.service(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			start := time.Now()
			stats, err := svc.Resolve(ctx)
			if err != nil {
				return err
			}
			root.printf("Resolved %s of %s images in %s\n",
				humanize.Comma(int64(stats.Resolved)),
				humanize.Comma(int64(stats.Files)),
				time.Since(start).Round(time.Millisecond),
			)
			return root.printJSON(stats)
		},
	}
}

func newShowCmd(root *Root) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print the modal and caption documents for an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			svc, err := root.service(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			if _, err := svc.Load(ctx, []string{name}); err != nil {
				return err
			}
			svc.MergeCache(ctx)

			kinds := []string{frame.KindModal, frame.KindCaption}
			if kind != "" {
				kinds = []string{kind}
			}
			docs := make(map[string]any, len(kinds))
			for _, k := range kinds {
				doc, err := svc.Document(ctx, name, k)
				if err != nil {
					return err
				}
				docs[k] = doc
			}
			return root.printJSON(docs)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only this document kind (modal|caption)")
	return cmd
}

func newCacheCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the address cache",
	}

	var passes int
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "List cached addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := root.cfg.Cache

			c, err := geocache.Open(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			entries, err := c.Load(ctx)
			if err != nil {
				return err
			}

			switch c := c.(type) {
			case *geocache.File:
				root.printf("Backend: file %s\n", c.Path)
				if info, err := os.Stat(c.Path); err == nil {
					root.printf("Size: %s, updated %s\n", humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
				}
			case *geocache.SQLite:
				root.printf("Backend: sqlite %s\n", cfg.DatabasePath)
			}
			root.printf("%s cached addresses\n", humanize.Comma(int64(len(entries))))
			for _, name := range entries.Names() {
				root.printf("  %-32s %s\n", name, caption.FormatAddress(entries[name]))
			}

			db, ok := c.(*geocache.SQLite)
			if !ok || passes <= 0 {
				return nil
			}
			recs, err := db.Store.RecentPasses(ctx, passes)
			if err != nil {
				return err
			}
			root.printf("\nRecent passes:\n")
			for _, rec := range recs {
				root.printf("  %s %-10s %s files, started %s\n",
					rec.ID, rec.Status, humanize.Comma(int64(rec.FileCount)), humanize.Time(rec.StartedAt))
			}
			return nil
		},
	}
	showCmd.Flags().IntVar(&passes, "passes", 5, "recent resolver passes to list (sqlite backend)")

	cmd.AddCommand(showCmd)
	return cmd
}
