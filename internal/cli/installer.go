package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liangyou/mcversion/internal/autostart"
	"github.com/liangyou/mcversion/internal/installer"
	"github.com/liangyou/mcversion/pkg/models"
)

// InstallerCommand 返回 mcversion-installer 根命令，不带子命令时执行安装。
func (a *App) InstallerCommand() *cobra.Command {
	var assumeYes bool

	install := func(cmd *cobra.Command, args []string) error {
		return a.handleInstall(cmd, assumeYes)
	}

	root := &cobra.Command{
		Use:           "mcversion-installer",
		Short:         "Install the MCVersion watcher and register it to start at login",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          install,
	}
	a.addCommonFlags(root)
	flags := root.PersistentFlags()
	flags.String("dir", "", "install directory (asks interactively when empty)")
	flags.String("autostart", "", "autostart mode: script or service")
	flags.String("download-url", "", "download url of the prebuilt executable")
	flags.String("checksum", "", "expected SHA256 of the download")
	flags.BoolVarP(&assumeYes, "yes", "y", false, "skip the interactive wizard")

	root.AddCommand(
		&cobra.Command{
			Use:   "install",
			Short: "Download, install, register autostart and launch",
			Args:  cobra.NoArgs,
			RunE:  install,
		},
		&cobra.Command{
			Use:   "uninstall",
			Short: "Remove the autostart entry and the installed executable",
			Args:  cobra.NoArgs,
			RunE:  a.handleUninstall,
		},
		a.versionCommand("mcversion-installer"),
	)
	return root
}

func (a *App) handleInstall(cmd *cobra.Command, assumeYes bool) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}

	dir := cfg.Install.Dir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("cli: determine working directory: %w", err)
		}
		if !assumeYes {
			selected, ok, err := a.prompter.SelectDir(dir)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.out, "Installation cancelled.")
				return nil
			}
			dir = selected
		}
	}

	if err := a.checker.Validate(dir); err != nil {
		return err
	}

	inst, err := a.newInstaller(cfg)
	if err != nil {
		return err
	}
	target, err := inst.Install(cmd.Context(), dir)
	if err != nil {
		return fmt.Errorf("installation failed: %w", err)
	}

	fmt.Fprintf(a.out, "Installed %s\n", target)
	fmt.Fprintln(a.out, "Thank you for installing MCVersion! The app will now start automatically.")
	return nil
}

func (a *App) handleUninstall(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := cfg.Install.Dir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("cli: determine working directory: %w", err)
		}
	}
	inst, err := a.newInstaller(cfg)
	if err != nil {
		return err
	}
	if err := inst.Uninstall(dir); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %s\n", inst.Target(dir))
	return nil
}

func (a *App) newInstaller(cfg models.Config) (*installer.Installer, error) {
	registrar, err := a.newRegistrar(cfg.Install.Autostart, autostart.DefaultName)
	if err != nil {
		return nil, err
	}
	downloader := installer.NewDownloader(installer.WithProgressFunc(a.progress))
	artifact := installer.Artifact{
		URL:      cfg.Install.DownloadURL,
		FileName: cfg.Install.BinaryName,
		Checksum: cfg.Install.Checksum,
	}
	return installer.NewInstaller(artifact, downloader, registrar,
		installer.WithLauncher(a.launcher),
		installer.WithStepFunc(a.step),
	), nil
}

func (a *App) step(step installer.Step, detail string) {
	switch step {
	case installer.StepDownload:
		fmt.Fprintf(a.out, "Downloading %s\n", detail)
	case installer.StepCopy:
		fmt.Fprintf(a.out, "Installing to %s\n", detail)
	case installer.StepRegister:
		fmt.Fprintf(a.out, "Registering autostart %s\n", detail)
	case installer.StepLaunch:
		fmt.Fprintf(a.out, "Starting %s\n", detail)
	}
}

func (a *App) progress(done, total int64) {
	if total > 0 && done == total {
		fmt.Fprintf(a.out, "Downloaded %d bytes\n", done)
	}
}
