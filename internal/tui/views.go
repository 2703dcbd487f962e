package tui

import (
	"fmt"
	"strings"

	"provsync/config/models"
	"provsync/internal/providers"
	"provsync/internal/utils"

	"github.com/charmbracelet/lipgloss"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(true)

	defaultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	defaultSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Background(lipgloss.Color("57")).
				Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	builtInTagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)

// RenderMainView renders the provider list
func (m Model) RenderMainView() string {
	var b strings.Builder
	width := m.getEffectiveWidth(40)

	b.WriteString(titleStyle.Render("AI 提供商"))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n\n")

	if len(m.providers) == 0 {
		b.WriteString(dimStyle.Render("正在加载..."))
		b.WriteString("\n")
	} else {
		visibleHeight := m.getVisibleListHeight()
		startIdx := m.scrollOffset
		endIdx := startIdx + visibleHeight
		if endIdx > len(m.providers) {
			endIdx = len(m.providers)
		}

		if startIdx > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ↑ 还有 %d 项...", startIdx)))
			b.WriteString("\n")
		}
		for i := startIdx; i < endIdx; i++ {
			b.WriteString(m.renderProviderLine(i, m.providers[i]))
			b.WriteString("\n")
		}
		if endIdx < len(m.providers) {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ↓ 还有 %d 项...", len(m.providers)-endIdx)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(m.RenderStatusBar())

	return b.String()
}

// getEffectiveWidth returns the render width, capped for readability
func (m Model) getEffectiveWidth(defaultWidth int) int {
	if m.width <= 0 {
		return defaultWidth
	}
	maxWidth := 80
	if m.width < maxWidth {
		return m.width - 2
	}
	return maxWidth
}

// renderProviderLine renders a single provider row
func (m Model) renderProviderLine(index int, p models.Provider) string {
	isSelected := index == m.cursor
	isDefault := p.ID == m.defaultID

	cursor := "  "
	if isSelected {
		cursor = "> "
	}
	marker := "  "
	if isDefault {
		marker = "* "
	}

	info := fmt.Sprintf(" [%s]", typeDisplayName(p.Type))
	if p.ModelID != "" {
		info += " " + p.ModelID
	}
	if host := utils.ExtractHost(p.BaseURL); host != "" {
		info += " @" + host
	}
	if p.APIKey != "" {
		info += " " + utils.MaskAPIKey(p.APIKey)
	}
	if p.IsBuiltIn {
		info += " " + builtInTagStyle.Render("内置")
	}

	content := m.truncateText(fmt.Sprintf("%s%s%s", cursor, marker, p.Name), m.getEffectiveWidth(40)) + info

	switch {
	case isSelected && isDefault:
		return defaultSelectedStyle.Render(content)
	case isSelected:
		return selectedStyle.Render(content)
	case isDefault:
		return defaultStyle.Render(content)
	}
	return normalStyle.Render(content)
}

func typeDisplayName(t models.ProviderType) string {
	if catalog, err := providers.Get(t); err == nil {
		return catalog.DisplayName()
	}
	return string(t)
}

// Detail view styles
var (
	detailLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	detailDefaultTagStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Background(lipgloss.Color("22")).
				Bold(true).
				Padding(0, 1)

	detailSectionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	detailMaskedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))
)

func (m Model) detailRow(b *strings.Builder, label, value, empty string) {
	b.WriteString(detailLabelStyle.Render(label))
	if value == "" {
		b.WriteString(dimStyle.Render(empty))
	} else {
		b.WriteString(detailValueStyle.Render(m.truncateText(value, m.getEffectiveWidth(40)-16)))
	}
	b.WriteString("\n")
}

// RenderDetailView renders the detail view
func (m Model) RenderDetailView() string {
	var b strings.Builder

	if m.selected < 0 || m.selected >= len(m.providers) {
		return dimStyle.Render("未选择提供商，按 Enter 查看详情")
	}

	p := m.providers[m.selected]
	width := m.getEffectiveWidth(40)

	b.WriteString(titleStyle.Render(p.Name))
	if p.ID == m.defaultID {
		b.WriteString("  ")
		b.WriteString(detailDefaultTagStyle.Render("★ 默认"))
	}
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n\n")

	b.WriteString(detailSectionStyle.Render("基本信息"))
	b.WriteString("\n")
	m.detailRow(&b, "ID:", p.ID, "")
	m.detailRow(&b, "Type:", typeDisplayName(p.Type), "")
	m.detailRow(&b, "Base URL:", p.BaseURL, "(默认)")
	b.WriteString(detailLabelStyle.Render("API Key:"))
	if p.APIKey != "" {
		b.WriteString(detailMaskedStyle.Render(utils.MaskAPIKey(p.APIKey)))
	} else {
		b.WriteString(dimStyle.Render("(未设置)"))
	}
	b.WriteString("\n\n")

	b.WriteString(detailSectionStyle.Render("模型配置"))
	b.WriteString("\n")
	m.detailRow(&b, "Model:", p.ModelID, "(未设置)")
	var contextWindow, temperature string
	if mc := p.ModelConfig; mc != nil {
		if mc.ContextWindow != nil {
			contextWindow = fmt.Sprintf("%d", *mc.ContextWindow)
		}
		if mc.Temperature != nil {
			temperature = fmt.Sprintf("%g", *mc.Temperature)
		}
	}
	m.detailRow(&b, "Context Window:", contextWindow, "(未设置)")
	m.detailRow(&b, "Temperature:", temperature, "(未设置)")
	b.WriteString("\n")

	b.WriteString(detailSectionStyle.Render("时间"))
	b.WriteString("\n")
	m.detailRow(&b, "Created:", p.CreatedAt, "-")
	m.detailRow(&b, "Updated:", p.UpdatedAt, "-")

	if m.errorMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("✗ 错误: " + m.errorMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("s: 设为默认 │ e: 编辑 │ d: 删除 │ Esc: 返回"))

	return b.String()
}

// truncateText truncates text to fit within maxWidth, adding ellipsis if needed
func (m Model) truncateText(text string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if len(text) <= maxWidth {
		return text
	}
	return text[:maxWidth-3] + "..."
}

// RenderDeleteConfirm renders the delete confirmation dialog
func (m Model) RenderDeleteConfirm() string {
	var b strings.Builder
	width := m.getEffectiveWidth(40)

	b.WriteString(titleStyle.Render("确认删除"))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n\n")

	if p, ok := m.current(); ok {
		b.WriteString(errorStyle.Render("⚠ 警告: 此操作不可撤销！"))
		b.WriteString("\n\n")
		b.WriteString(normalStyle.Render("即将删除提供商: "))
		b.WriteString(selectedStyle.Render(p.Name))
		b.WriteString("\n\n")

		if p.ID == m.defaultID {
			b.WriteString(errorStyle.Render("注意: 这是当前默认的提供商，删除后默认将改为列表中的第一个"))
			b.WriteString("\n\n")
		}
		if p.BaseURL != "" {
			b.WriteString(dimStyle.Render("Base URL: " + m.truncateText(p.BaseURL, width-12)))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(errorStyle.Render("错误: 未选择有效的提供商"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("y: 确认删除 │ n/Esc: 取消"))

	return b.String()
}

// RenderHelpView renders the help panel with scrolling support
func (m Model) RenderHelpView() string {
	var b strings.Builder
	width := m.getEffectiveWidth(50)

	b.WriteString(titleStyle.Render("快捷键帮助"))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")

	lines := m.buildHelpLines()
	startIdx := m.helpScrollOffset
	endIdx := startIdx + m.getVisibleHelpHeight()
	if endIdx > len(lines) {
		endIdx = len(lines)
	}
	if startIdx > len(lines) {
		startIdx = len(lines)
	}

	if startIdx > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ↑ 还有 %d 行...", startIdx)))
	}
	b.WriteString("\n")
	for i := startIdx; i < endIdx; i++ {
		b.WriteString(lines[i])
	}
	if endIdx < len(lines) {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ↓ 还有 %d 行...", len(lines)-endIdx)))
		b.WriteString("\n")
	}

	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k: 上下滚动 │ q/Esc: 返回"))

	return b.String()
}

// buildHelpLines builds the help content from the key map
func (m Model) buildHelpLines() []string {
	sections := []string{"导航", "提供商", "通用", "表单"}
	var lines []string
	for i, group := range m.keys.FullHelp() {
		title := ""
		if i < len(sections) {
			title = sections[i]
		}
		lines = append(lines, detailSectionStyle.Render(title)+"\n")
		for _, binding := range group {
			lines = append(lines, renderHelpLine(binding.Help().Key, binding.Help().Desc))
		}
		lines = append(lines, "\n")
	}
	return lines
}

// renderHelpLine renders a single help line with key and description
func renderHelpLine(key, desc string) string {
	keyStyled := helpKeyStyle.Render(fmt.Sprintf("  %-10s", key))
	descStyled := normalStyle.Render(desc)
	return fmt.Sprintf("%s %s\n", keyStyled, descStyled)
}

// RenderStatusBar renders the bottom status bar
func (m Model) RenderStatusBar() string {
	var b strings.Builder

	if m.errorMsg != "" {
		b.WriteString(errorStyle.Render("✗ 错误: " + m.errorMsg))
		b.WriteString("\n")
	}
	if m.message != "" {
		b.WriteString(messageStyle.Render("✓ " + m.message))
		b.WriteString("\n")
	}
	if m.errorMsg != "" || m.message != "" {
		b.WriteString("\n")
	}

	shortHelp := m.keys.ShortHelp()
	hints := make([]string, 0, len(shortHelp))
	for _, k := range shortHelp {
		hints = append(hints, fmt.Sprintf("%s %s", helpKeyStyle.Render(k.Help().Key), helpStyle.Render(k.Help().Desc)))
	}
	b.WriteString(strings.Join(hints, helpStyle.Render(" │ ")))

	return b.String()
}
