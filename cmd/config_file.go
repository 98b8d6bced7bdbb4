package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"examexport/config"
)

const defaultConfigFileName = ".examexport.yaml"

// configFilePath picks the file the config commands work on: the --configFile
// flag, then the file viper loaded, then $HOME/.examexport.yaml.
func configFilePath(flagValue, inUse string, homeDir func() (string, error)) (string, error) {
	for _, candidate := range []string{flagValue, inUse} {
		if strings.TrimSpace(candidate) != "" {
			return candidate, nil
		}
	}

	home, err := homeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, defaultConfigFileName), nil
}

// writeConfigTemplate writes the template for driver to path unless the file
// already exists. The file holds secrets and is created with mode 0600.
func writeConfigTemplate(path, driver string) (bool, error) {
	content, err := config.ExampleYAMLFor(driver)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return false, fmt.Errorf("create config file: %w", err)
	}
	if _, err := file.WriteString(content); err != nil {
		_ = file.Close()
		return false, fmt.Errorf("write config file: %w", err)
	}
	if err := file.Close(); err != nil {
		return false, fmt.Errorf("close config file: %w", err)
	}
	return true, nil
}

// editorCommand builds the editor invocation for path from EXAMEXPORT_EDITOR,
// VISUAL or EDITOR, falling back to vi.
func editorCommand(getenv func(string) string, path string) (*exec.Cmd, error) {
	editor := "vi"
	for _, key := range []string{"EXAMEXPORT_EDITOR", "VISUAL", "EDITOR"} {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			editor = value
			break
		}
	}

	fields := strings.Fields(editor)
	if len(fields) == 0 {
		return nil, fmt.Errorf("editor command is empty")
	}
	args := append(fields[1:], path)
	return exec.Command(fields[0], args...), nil
}

func validateConfigFile(path string) (*config.Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := config.ValidateYAMLContent(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
