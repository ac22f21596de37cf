package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tokpost-go/application"
	"tokpost-go/application/login"
	"tokpost-go/application/upload"
	"tokpost-go/core/eventbus"
	"tokpost-go/domain/media"
	"tokpost-go/infrastructure/browser"
	"tokpost-go/infrastructure/catalog"
	"tokpost-go/infrastructure/config"
	"tokpost-go/infrastructure/logging"
	"tokpost-go/presentation/console"
)

var cfgPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tokpost",
		Short: "Automated video uploads to TikTok through a real browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context())
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "path to the config file")

	root.AddCommand(
		newBatchCmd(),
		newUploadCmd(),
		newLoginCmd(),
		newHistoryCmd(),
		newClearHistoryCmd(),
		newTestBrowserCmd(),
	)
	return root
}

// app bundles the long-lived collaborators a command needs.
type app struct {
	cfg      *config.Config
	cat      *catalog.Catalog
	bus      eventbus.EventBus
	renderer *console.Renderer
}

// newApp loads configuration and opens the catalog and event bus. The
// returned cleanup must run when the command ends.
func newApp() (*app, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	cat, err := catalog.Open(cfg.CatalogPath, logging.L())
	if err != nil {
		return nil, nil, err
	}

	bus := eventbus.New(100)
	renderer := console.NewRenderer(bus)
	renderer.Attach()

	a := &app{cfg: cfg, cat: cat, bus: bus, renderer: renderer}
	cleanup := func() {
		renderer.Detach()
		bus.Close()
		cat.Close()
	}
	return a, cleanup, nil
}

// newDriver builds a browser driver from the loaded config.
func (a *app) newDriver() browser.Driver {
	return browser.NewChromeDPDriver(&browser.DriverConfig{
		Headless:             a.cfg.Browser.Headless,
		WindowWidth:          a.cfg.Browser.WindowWidth,
		WindowHeight:         a.cfg.Browser.WindowHeight,
		UserDataDir:          a.cfg.Browser.UserDataDir,
		ScreenshotDir:        a.cfg.Browser.ScreenshotDir,
		MuteAudio:            true,
		DisableNotifications: true,
	})
}

// newFlows wires the login flow and uploader over a started driver.
func (a *app) newFlows(driver browser.Driver) (*login.Flow, *upload.Uploader) {
	flow := login.NewFlow(driver, a.bus, console.NewPrompter(), a.cfg)
	return flow, upload.NewUploader(driver, a.bus, flow, a.cfg)
}

// pendingItems scans the video directory and converts pending entries into
// upload items with the configured default hashtags.
func (a *app) pendingItems(ctx context.Context) ([]application.BatchItem, error) {
	if _, err := a.cat.Scan(ctx, a.cfg.VideoDir); err != nil {
		return nil, err
	}
	entries, err := a.cat.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]application.BatchItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, application.BatchItem{
			Item:        media.NewItem(e.Path, "", "", a.cfg.DefaultHashtags),
			Fingerprint: e.Fingerprint,
		})
	}
	return items, nil
}

// withBrowser starts the driver, runs fn, and always stops the browser.
// Credentials are deliberately not required here: without them the login
// flow falls back to waiting for a manual login in the browser window.
func (a *app) withBrowser(ctx context.Context, fn func(driver browser.Driver) error) error {
	driver := a.newDriver()
	if err := driver.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer driver.Stop()
	return fn(driver)
}

func (a *app) runBatch(ctx context.Context, items []application.BatchItem) error {
	if len(items) == 0 {
		color.Yellow("nothing to upload")
		return nil
	}
	return a.withBrowser(ctx, func(driver browser.Driver) error {
		_, uploader := a.newFlows(driver)
		coordinator := application.NewCoordinator(&application.CoordinatorConfig{
			Uploader: uploader,
			Recorder: a.cat,
			EventBus: a.bus,
			Interval: time.Duration(a.cfg.UploadIntervalSeconds) * time.Second,
			Logger:   logging.L(),
		})
		_, err := coordinator.RunBatch(ctx, items)
		// let the async renderer drain before the terminal prompt returns
		a.bus.Flush()
		return err
	})
}

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Upload every pending video in the configured directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			items, err := a.pendingItems(cmd.Context())
			if err != nil {
				return err
			}
			return a.runBatch(cmd.Context(), items)
		},
	}
}

func newUploadCmd() *cobra.Command {
	var description string
	var hashtags []string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a single video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", path, err)
			}
			entry, err := a.cat.Register(cmd.Context(), path, info)
			if err != nil {
				return err
			}

			tags := hashtags
			if len(tags) == 0 {
				tags = a.cfg.DefaultHashtags
			}
			item := application.BatchItem{
				Item:        media.NewItem(path, "", description, tags),
				Fingerprint: entry.Fingerprint,
			}
			return a.runBatch(cmd.Context(), []application.BatchItem{item})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "caption text placed before the hashtags")
	cmd.Flags().StringSliceVarP(&hashtags, "hashtag", "t", nil, "hashtags for the caption (repeatable)")
	return cmd
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Run the login flow without uploading anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			return a.withBrowser(cmd.Context(), func(driver browser.Driver) error {
				flow, _ := a.newFlows(driver)
				result, err := flow.EnsureLoggedIn(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("login result: %s (%s)\n", result.Outcome, result.Message)
				return nil
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List uploaded videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()
			return printHistory(cmd.Context(), a)
		},
	}
}

func printHistory(ctx context.Context, a *app) error {
	entries, err := a.cat.History(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no uploads recorded")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %s", e.UploadTime.Format("2006-01-02 15:04"), filepath.Base(e.Path))
		if e.RemoteURL != "" {
			line += "  " + e.RemoteURL
		}
		fmt.Println(line)
	}
	return nil
}

func newClearHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-history",
		Short: "Mark every video as not uploaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := a.cat.ClearHistory(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("cleared %d entries\n", n)
			return nil
		},
	}
}

func newTestBrowserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-browser",
		Short: "Open the browser on the upload page and wait",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			driver := a.newDriver()
			if err := driver.Start(cmd.Context()); err != nil {
				return err
			}
			defer driver.Stop()

			if err := driver.Navigate(cmd.Context(), a.cfg.UploadURL); err != nil {
				return err
			}
			if url, err := driver.CurrentURL(cmd.Context()); err == nil {
				fmt.Println("current url:", url)
			}
			fmt.Println("browser is open; press Enter to close")
			bufio.NewReader(os.Stdin).ReadString('\n')
			return nil
		},
	}
}

// runInteractive loops the main menu until the operator quits.
func runInteractive(ctx context.Context) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	for {
		action, err := console.RunMenu()
		if err != nil {
			return err
		}

		switch action {
		case console.ActionQuit:
			return nil

		case console.ActionBatch:
			items, err := a.pendingItems(ctx)
			if err != nil {
				return err
			}
			if err := a.runBatch(ctx, items); err != nil {
				return err
			}

		case console.ActionSingle:
			items, err := a.pendingItems(ctx)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				color.Yellow("nothing to upload")
				continue
			}
			paths := make([]string, len(items))
			for i, it := range items {
				paths[i] = it.Item.Path
			}
			idx, err := console.ChooseVideo(paths)
			if err != nil {
				continue
			}
			if err := a.runBatch(ctx, items[idx:idx+1]); err != nil {
				return err
			}

		case console.ActionLogin:
			err := a.withBrowser(ctx, func(driver browser.Driver) error {
				flow, _ := a.newFlows(driver)
				result, err := flow.EnsureLoggedIn(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("login result: %s (%s)\n", result.Outcome, result.Message)
				return nil
			})
			if err != nil {
				color.Red("login failed: %v", err)
			}

		case console.ActionHistory:
			if err := printHistory(ctx, a); err != nil {
				return err
			}

		case console.ActionClearHistory:
			n, err := a.cat.ClearHistory(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("cleared %d entries\n", n)

		case console.ActionTestBrowser:
			driver := a.newDriver()
			if err := driver.Start(ctx); err != nil {
				color.Red("browser start failed: %v", err)
				continue
			}
			if err := driver.Navigate(ctx, a.cfg.UploadURL); err != nil {
				color.Red("navigation failed: %v", err)
			} else {
				fmt.Println("browser is open; press Enter to close")
				bufio.NewReader(os.Stdin).ReadString('\n')
			}
			driver.Stop()
		}
	}
}
