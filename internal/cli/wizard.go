package cli

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

const welcomeText = "This application monitors Minecraft versions on a configured server, " +
	"notifies you when new versions are released, and starts automatically when you log in.\n\n" +
	"The installer will download the MCVersion app and set it up for automatic launch."

// Prompter 通过交互式向导获取安装目录，用户取消时 ok 为 false。
type Prompter interface {
	SelectDir(defaultDir string) (dir string, ok bool, err error)
}

type huhPrompter struct{}

// SelectDir 依次展示欢迎页、目录选择与确认。
func (huhPrompter) SelectDir(defaultDir string) (string, bool, error) {
	dir := defaultDir
	confirmed := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to the MCVersion Installer!").
				Description(welcomeText),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Select the folder where the MCVersion app should be installed").
				Value(&dir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("folder is required")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Install now?").
				Affirmative("Install").
				Negative("Cancel").
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", false, nil
		}
		return "", false, err
	}
	return strings.TrimSpace(dir), confirmed, nil
}
