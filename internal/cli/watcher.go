package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kardianos/service"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/liangyou/mcversion/internal/article"
	"github.com/liangyou/mcversion/internal/autostart"
	"github.com/liangyou/mcversion/internal/companion"
	"github.com/liangyou/mcversion/internal/remote"
	"github.com/liangyou/mcversion/internal/storage"
	"github.com/liangyou/mcversion/internal/watch"
	"github.com/liangyou/mcversion/pkg/models"
)

const readyTimeout = 30 * time.Second

// WatcherCommand 返回 mcversion 根命令，不带子命令时直接开始监听。
func (a *App) WatcherCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "mcversion",
		Short:         "Watch for new Minecraft versions and raise desktop notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatcher(cmd)
		},
	}
	a.addCommonFlags(root)
	flags := root.PersistentFlags()
	flags.String("endpoint", "", "version server base url")
	flags.String("known-file", "", "known versions file")
	flags.Duration("http-timeout", 0, "timeout for a single HTTP request")
	flags.Duration("interval", 0, "poll interval")
	flags.Bool("companion", true, "start the built-in version server")
	flags.String("listen", "", "listen address of the built-in version server")
	flags.String("manifest-url", "", "upstream version manifest url")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Start the version server and the watch loop",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runWatcher(cmd)
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Start only the version server",
			Args:  cobra.NoArgs,
			RunE:  a.handleServe,
		},
		&cobra.Command{
			Use:   "check",
			Short: "Poll once and report new versions",
			Args:  cobra.NoArgs,
			RunE:  a.handleCheck,
		},
		&cobra.Command{
			Use:   "known",
			Short: "List known versions",
			Args:  cobra.NoArgs,
			RunE:  a.handleKnown,
		},
		&cobra.Command{
			Use:   "remote",
			Short: "List versions reported by the version server",
			Args:  cobra.NoArgs,
			RunE:  a.handleRemote,
		},
		a.versionCommand("mcversion"),
	)
	return root
}

func (a *App) versionCommand(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "%s version %s\n", name, a.version)
		},
	}
}

// runWatcher 在终端中按信号退出，在服务管理器下交给 kardianos/service 控制生命周期。
func (a *App) runWatcher(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}

	if service.Interactive() {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.watch(ctx, cfg)
	}

	prg := newProgram(func(ctx context.Context) error { return a.watch(ctx, cfg) })
	svc, err := service.New(prg, autostart.ServiceConfig(autostart.DefaultName, ""))
	if err != nil {
		return fmt.Errorf("cli: create service: %w", err)
	}
	return svc.Run()
}

// watch 同时运行内置版本服务与轮询循环。版本服务启动失败只记录日志，轮询继续。
func (a *App) watch(ctx context.Context, cfg models.Config) error {
	client := a.remoteClient(cfg)
	store := storage.NewFileStore(cfg.KnownFile)
	notifier := a.newNotifier(cfg.Notify.AppName)
	defer notifier.Close()

	linker := article.NewLinker(client, a.opener)
	watcher := watch.New(client, store, notifier,
		watch.WithInterval(cfg.Interval),
		watch.WithClickHandler(linker.HandleClick),
	)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Companion.Enabled {
		srv := newCompanion(cfg)
		g.Go(func() error {
			if err := srv.ListenAndServe(ctx, cfg.Companion.Listen); err != nil {
				log.Errorf("failed to start version server: %v", err)
			}
			return nil
		})
		if err := companion.WaitReady(ctx, client, readyTimeout); err != nil {
			log.Warnf("continuing without a ready version server: %v", err)
		}
	}
	g.Go(func() error {
		return watcher.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) handleServe(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newCompanion(cfg).ListenAndServe(ctx, cfg.Companion.Listen)
}

func (a *App) handleCheck(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client := a.remoteClient(cfg)
	notifier := a.newNotifier(cfg.Notify.AppName)
	defer notifier.Close()

	watcher := watch.New(client, storage.NewFileStore(cfg.KnownFile), notifier)
	known, err := watcher.LoadKnownVersions(ctx)
	if err != nil {
		return err
	}
	if watcher.State() == watch.StateSeeding {
		fmt.Fprintln(a.out, "Version server returned nothing; known versions not seeded yet.")
		return nil
	}

	fresh, err := watcher.Poll(ctx)
	if err != nil {
		return err
	}
	if len(fresh) == 0 {
		fmt.Fprintf(a.out, "No new versions (%d known).\n", len(known))
		return nil
	}
	fmt.Fprintln(a.out, "New versions:")
	for _, v := range fresh {
		fmt.Fprintf(a.out, "  %s\n", v)
	}
	return nil
}

func (a *App) handleKnown(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	known, err := storage.NewFileStore(cfg.KnownFile).Load()
	if errors.Is(err, storage.ErrNotSeeded) {
		fmt.Fprintln(a.out, "No known versions yet.")
		return nil
	}
	if err != nil {
		return err
	}
	a.printVersions("Known versions:", known)
	return nil
}

func (a *App) handleRemote(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	versions, err := a.remoteClient(cfg).FetchVersions(cmd.Context())
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(a.out, "No remote versions available.")
		return nil
	}
	a.printVersions("Remote versions:", versions)
	return nil
}

func (a *App) printVersions(header string, versions models.VersionSet) {
	fmt.Fprintln(a.out, header)
	for _, v := range versions.Sorted() {
		fmt.Fprintf(a.out, "  %s\n", v)
	}
}

func (a *App) remoteClient(cfg models.Config) *remote.Client {
	return remote.NewClient(
		remote.WithBaseURL(cfg.Endpoint),
		remote.WithTimeout(cfg.HTTPTimeout),
	)
}

func newCompanion(cfg models.Config) *companion.Server {
	return companion.NewServer(
		companion.WithManifestURL(cfg.Companion.ManifestURL),
		companion.WithCacheTTL(cfg.Companion.CacheTTL),
	)
}
