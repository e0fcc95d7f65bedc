package serverselect

import (
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/ts-platform/portal/internal/cli/config"
)

// Prompter picks one server out of several
type Prompter func(servers []config.Server) (*config.Server, error)

// ResolveServer determines which server to switch to based on the following priority:
// 1. If name is provided, use that server
// 2. If only one server is configured, use that
// 3. Otherwise, ask prompt to choose
func ResolveServer(cfg *config.Config, name string, prompt Prompter) (*config.Server, error) {
	if name != "" {
		return cfg.GetServerByName(name)
	}

	switch len(cfg.Servers) {
	case 0:
		return nil, fmt.Errorf("no servers configured. Run 'tsp server add' first")
	case 1:
		return &cfg.Servers[0], nil
	}

	if prompt == nil {
		prompt = PromptServerSelection
	}
	return prompt(cfg.Servers)
}

// PromptServerSelection shows an interactive prompt for the user to select a server
func PromptServerSelection(servers []config.Server) (*config.Server, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("no servers configured")
	}

	type serverOption struct {
		Label  string
		Server *config.Server
	}

	options := make([]serverOption, len(servers))
	for i := range servers {
		server := &servers[i]
		options[i] = serverOption{
			Label:  fmt.Sprintf("%s (%s)", server.Name, server.URL),
			Server: server,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a server",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}

	return options[index].Server, nil
}
