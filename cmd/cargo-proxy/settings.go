package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"cargo-proxy/internal/config"
	"cargo-proxy/internal/render"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Edit the config file interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := tea.NewProgram(newSettingsModel(cfg, configPath))
		final, err := p.Run()
		if err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		if m, ok := final.(settingsModel); ok && m.saved {
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", configPath)
		}
		return nil
	},
}

type settingsStep int

const (
	stepSelectField settingsStep = iota
	stepSelectValue
	stepInputValue
)

type tuiOption struct {
	Label string
	Value string
}

const tuiKeepValue = "__keep__"

// settingsField is one editable config key. Fields with choices are picked
// from a list; the rest are typed.
type settingsField struct {
	key     string
	choices []string
	get     func(config.Config) string
	set     func(*config.Config, string) error
}

var boolChoices = []string{"true", "false"}

var settingsFields = []settingsField{
	{
		key: "tool.binary",
		get: func(c config.Config) string { return c.Tool.Binary },
		set: func(c *config.Config, v string) error { c.Tool.Binary = v; return nil },
	},
	{
		key: "tool.check_subcommand",
		get: func(c config.Config) string { return c.Tool.CheckSubcommand },
		set: func(c *config.Config, v string) error { c.Tool.CheckSubcommand = v; return nil },
	},
	{
		key: "tool.source_extensions",
		get: func(c config.Config) string { return strings.Join(c.Tool.SourceExtensions, ",") },
		set: func(c *config.Config, v string) error { c.Tool.SourceExtensions = splitList(v); return nil },
	},
	{
		key: "tool.timeout",
		get: func(c config.Config) string { return c.Tool.Timeout.String() },
		set: func(c *config.Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			c.Tool.Timeout = d
			return nil
		},
	},
	{
		key:     "verify.enabled",
		choices: boolChoices,
		get:     func(c config.Config) string { return strconv.FormatBool(c.Verify.Enabled) },
		set: func(c *config.Config, v string) error {
			b, err := strconv.ParseBool(v)
			c.Verify.Enabled = b
			return err
		},
	},
	{
		key:     "verify.report",
		choices: []string{config.ReportFull, config.ReportRedacted},
		get:     func(c config.Config) string { return c.Verify.Report },
		set:     func(c *config.Config, v string) error { c.Verify.Report = v; return nil },
	},
	{
		key: "verify.report_dir",
		get: func(c config.Config) string { return c.Verify.ReportDir },
		set: func(c *config.Config, v string) error { c.Verify.ReportDir = v; return nil },
	},
	{
		key:     "verify.notify_client",
		choices: boolChoices,
		get:     func(c config.Config) string { return strconv.FormatBool(c.Verify.NotifyClient) },
		set: func(c *config.Config, v string) error {
			b, err := strconv.ParseBool(v)
			c.Verify.NotifyClient = b
			return err
		},
	},
	{
		key:     "mcp.transport",
		choices: []string{config.TransportHTTP, config.TransportStdio, config.TransportNone},
		get:     func(c config.Config) string { return c.MCP.Transport },
		set:     func(c *config.Config, v string) error { c.MCP.Transport = v; return nil },
	},
	{
		key: "mcp.listen",
		get: func(c config.Config) string { return c.MCP.Listen },
		set: func(c *config.Config, v string) error { c.MCP.Listen = v; return nil },
	},
	{
		key:     "log.level",
		choices: []string{"debug", "info", "warn", "error"},
		get:     func(c config.Config) string { return c.Log.Level },
		set:     func(c *config.Config, v string) error { c.Log.Level = v; return nil },
	},
	{
		key:     "log.format",
		choices: []string{config.FormatJSON, config.FormatConsole},
		get:     func(c config.Config) string { return c.Log.Format },
		set:     func(c *config.Config, v string) error { c.Log.Format = v; return nil },
	},
}

func splitList(val string) []string {
	out := []string{}
	for _, p := range strings.Split(val, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type settingsModel struct {
	cfg        config.Config
	configPath string

	step   settingsStep
	cursor int
	field  int

	textInput textinput.Model
	quitting  bool
	saved     bool
	message   string
}

func newSettingsModel(cfg config.Config, configPath string) settingsModel {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 40

	return settingsModel{
		cfg:        cfg,
		configPath: configPath,
		step:       stepSelectField,
		textInput:  ti,
	}
}

func (m settingsModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m settingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.step == stepInputValue {
			return m.handleTextInput(msg)
		}
		return m.handleSelection(msg)
	}

	if m.step == stepInputValue {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m settingsModel) handleTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c"))):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
		m.step = stepSelectField
		m.cursor = m.field
		return m, nil

	case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
		(&m).apply(strings.TrimSpace(m.textInput.Value()))
		m.textInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m settingsModel) handleSelection(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c", "q"))):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
		if m.step == stepSelectField {
			m.quitting = true
			return m, tea.Quit
		}
		m.step = stepSelectField
		m.cursor = m.field
		return m, nil

	case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
		if m.cursor < len(m.getOptions())-1 {
			m.cursor++
		}

	case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
		return m.selectOption()
	}
	return m, nil
}

func (m settingsModel) selectOption() (tea.Model, tea.Cmd) {
	options := m.getOptions()
	if len(options) == 0 || m.cursor >= len(options) {
		return m, nil
	}
	selected := options[m.cursor].Value

	switch m.step {
	case stepSelectField:
		m.message = ""
		m.field = m.cursor
		f := settingsFields[m.field]
		if len(f.choices) > 0 {
			m.step = stepSelectValue
			m.cursor = 0
			return m, nil
		}
		m.textInput.SetValue(f.get(m.cfg))
		m.textInput.Placeholder = f.key
		m.step = stepInputValue
		return m, nil

	case stepSelectValue:
		if selected == tuiKeepValue {
			m.step = stepSelectField
			m.cursor = m.field
			return m, nil
		}
		(&m).apply(selected)
	}
	return m, nil
}

// apply sets the current field, validates the whole config and writes it.
// An invalid value leaves both the model and the file unchanged.
func (m *settingsModel) apply(value string) {
	f := settingsFields[m.field]
	next := m.cfg
	next.Tool.SourceExtensions = append([]string(nil), m.cfg.Tool.SourceExtensions...)
	if err := f.set(&next, value); err != nil {
		m.message = fmt.Sprintf("Error: %s: %v", f.key, err)
	} else if problems := config.Validate(next); len(problems) > 0 {
		m.message = "Error: " + strings.Join(problems, "; ")
	} else if err := config.Write(m.configPath, next); err != nil {
		m.message = "Error: " + err.Error()
	} else {
		m.cfg = next
		m.saved = true
		m.message = fmt.Sprintf("Saved %s", f.key)
	}
	m.step = stepSelectField
	m.cursor = m.field
}

func (m settingsModel) getOptions() []tuiOption {
	switch m.step {
	case stepSelectField:
		options := make([]tuiOption, 0, len(settingsFields))
		for _, f := range settingsFields {
			options = append(options, tuiOption{Label: f.key, Value: f.key})
		}
		return options
	case stepSelectValue:
		f := settingsFields[m.field]
		options := []tuiOption{{Label: "Keep current", Value: tuiKeepValue}}
		for _, c := range f.choices {
			options = append(options, tuiOption{Label: c, Value: c})
		}
		return options
	}
	return nil
}

func (m settingsModel) View() string {
	if m.quitting {
		if m.message != "" {
			return m.message + "\n"
		}
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("cargo-proxy settings") + "\n")
	sb.WriteString(render.Path(m.configPath) + "\n")
	sb.WriteString(render.Divider(45) + "\n\n")

	if m.step == stepInputValue {
		f := settingsFields[m.field]
		sb.WriteString(render.Section("Enter "+f.key+":") + "\n\n")
		sb.WriteString("  " + m.textInput.View() + "\n\n")
		sb.WriteString(helpStyle.Render("enter: save • esc: back"))
		return sb.String()
	}

	title := "Select Setting"
	if m.step == stepSelectValue {
		title = settingsFields[m.field].key
	}
	sb.WriteString(render.Section(title) + "\n\n")
	if m.message != "" {
		sb.WriteString(render.Value(m.message) + "\n\n")
	}

	for i, opt := range m.getOptions() {
		cursor := "  "
		style := itemStyle
		if i == m.cursor {
			cursor = cursorStyle.Render("▸ ")
			style = selectedItemStyle
		}
		line := cursor + style.Render(opt.Label)
		if m.step == stepSelectField {
			line += " " + currentValueStyle.Render(settingsFields[i].get(m.cfg))
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • esc: back • q: quit"))
	return sb.String()
}
