// Package tui provides the provider settings page
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"provsync/config/models"
	"provsync/config/validation"
	"provsync/internal/providers"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

// FormField represents the index of each form field
const (
	FormFieldName = iota
	FormFieldType
	FormFieldBaseURL
	FormFieldAPIKey
	FormFieldModelID
	FormFieldContextWindow
	FormFieldTemperature
	FormFieldCount // Total number of fields
)

// FormData represents the raw values collected from the form
type FormData struct {
	Name          string
	Type          string
	BaseURL       string
	APIKey        string
	ModelID       string
	ContextWindow string
	Temperature   string
}

var inputValidator = validation.NewInputValidator()

// Validate validates the form data, including the connection rules of the
// selected provider type
func (f *FormData) Validate() error {
	if err := inputValidator.ValidateName(f.Name); err != nil {
		return err
	}

	t := models.ProviderType(strings.TrimSpace(f.Type))
	catalog, err := providers.Get(t)
	if err != nil {
		return errors.New("未知的提供商类型: " + string(t))
	}

	baseURL := strings.TrimSpace(f.BaseURL)
	if err := inputValidator.ValidateURL(baseURL); err != nil {
		return err
	}
	if baseURL == "" {
		baseURL = catalog.DefaultBaseURL()
	}
	if err := catalog.ValidateConfig(baseURL, strings.TrimSpace(f.APIKey)); err != nil {
		return err
	}

	if _, err := inputValidator.ParseContextWindow(f.ContextWindow); err != nil {
		return err
	}
	if _, err := inputValidator.ParseTemperature(f.Temperature); err != nil {
		return err
	}
	return nil
}

// Apply copies the form values onto base. Fields the form does not edit
// (id, flags, capabilities, timestamps) are kept. An empty base URL is
// replaced by the type's default.
func (f *FormData) Apply(base models.Provider) (models.Provider, error) {
	if err := f.Validate(); err != nil {
		return models.Provider{}, err
	}

	p := base.Clone()
	p.Name = strings.TrimSpace(f.Name)
	p.Type = models.ProviderType(strings.TrimSpace(f.Type))
	p.BaseURL = strings.TrimSpace(f.BaseURL)
	if p.BaseURL == "" {
		if catalog, err := providers.Get(p.Type); err == nil {
			p.BaseURL = catalog.DefaultBaseURL()
		}
	}
	p.APIKey = strings.TrimSpace(f.APIKey)
	p.ModelID = strings.TrimSpace(f.ModelID)

	contextWindow, _ := inputValidator.ParseContextWindow(f.ContextWindow)
	temperature, _ := inputValidator.ParseTemperature(f.Temperature)
	if contextWindow == nil && temperature == nil {
		p.ModelConfig = nil
	} else {
		p.ModelConfig = &models.ModelConfig{ContextWindow: contextWindow, Temperature: temperature}
	}
	return p, nil
}

// FormDataFromProvider converts a stored provider into form values
func FormDataFromProvider(p models.Provider) FormData {
	data := FormData{
		Name:    p.Name,
		Type:    string(p.Type),
		BaseURL: p.BaseURL,
		APIKey:  p.APIKey,
		ModelID: p.ModelID,
	}
	if mc := p.ModelConfig; mc != nil {
		if mc.ContextWindow != nil {
			data.ContextWindow = strconv.Itoa(*mc.ContextWindow)
		}
		if mc.Temperature != nil {
			data.Temperature = strconv.FormatFloat(*mc.Temperature, 'g', -1, 64)
		}
	}
	return data
}

// SelectableTypes returns the provider types a user may pick. The native
// type belongs to the built-in provider only.
func SelectableTypes(builtIn bool) []models.ProviderType {
	if builtIn {
		return []models.ProviderType{models.ProviderTypeNative}
	}
	types := make([]models.ProviderType, 0, len(models.ProviderTypes))
	for _, t := range providers.List() {
		if t != models.ProviderTypeNative {
			types = append(types, t)
		}
	}
	return types
}

// CycleType returns the type after (step > 0) or before current in types
func CycleType(types []models.ProviderType, current string, step int) string {
	if len(types) == 0 {
		return current
	}
	idx := -1
	for i, t := range types {
		if string(t) == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return string(types[0])
	}
	idx = ((idx+step)%len(types) + len(types)) % len(types)
	return string(types[idx])
}

// Form styles
var (
	formLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(16)

	formFocusedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true).
				Width(16)

	formErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	formHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

func newInput(placeholder string, limit int) textinput.Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = limit
	input.Width = 40
	input.Prompt = ""
	return input
}

// FormInputs creates and initializes form input fields
func FormInputs() []textinput.Model {
	inputs := make([]textinput.Model, FormFieldCount)

	inputs[FormFieldName] = newInput("提供商名称", 64)
	inputs[FormFieldType] = newInput(string(models.ProviderTypeOpenAI), 32)
	inputs[FormFieldBaseURL] = newInput("https://api.example.com/v1", 256)

	inputs[FormFieldAPIKey] = newInput("API 密钥", 256)
	inputs[FormFieldAPIKey].EchoMode = textinput.EchoPassword
	inputs[FormFieldAPIKey].EchoCharacter = '•'

	inputs[FormFieldModelID] = newInput("gpt-4o", 128)
	inputs[FormFieldContextWindow] = newInput("128000", 10)
	inputs[FormFieldTemperature] = newInput("0.7", 8)

	inputs[FormFieldName].Focus()
	return inputs
}

// GetFormData extracts FormData from form inputs
func GetFormData(inputs []textinput.Model) FormData {
	return FormData{
		Name:          inputs[FormFieldName].Value(),
		Type:          inputs[FormFieldType].Value(),
		BaseURL:       inputs[FormFieldBaseURL].Value(),
		APIKey:        inputs[FormFieldAPIKey].Value(),
		ModelID:       inputs[FormFieldModelID].Value(),
		ContextWindow: inputs[FormFieldContextWindow].Value(),
		Temperature:   inputs[FormFieldTemperature].Value(),
	}
}

// SetFormData populates form inputs with existing data
func SetFormData(inputs []textinput.Model, data FormData) {
	inputs[FormFieldName].SetValue(data.Name)
	inputs[FormFieldType].SetValue(data.Type)
	inputs[FormFieldBaseURL].SetValue(data.BaseURL)
	inputs[FormFieldAPIKey].SetValue(data.APIKey)
	inputs[FormFieldModelID].SetValue(data.ModelID)
	inputs[FormFieldContextWindow].SetValue(data.ContextWindow)
	inputs[FormFieldTemperature].SetValue(data.Temperature)
}

// FormLabels returns the labels for each form field
func FormLabels() []string {
	return []string{
		"Name:",
		"Type:",
		"Base URL:",
		"API Key:",
		"Model:",
		"Context Window:",
		"Temperature:",
	}
}

// FormHints returns the hint text for each form field
func FormHints() []string {
	return []string{
		"显示名称",
		"←/→ 切换提供商类型",
		"留空则使用该类型的默认地址",
		"托管服务必填，自建服务可留空",
		"模型 ID (可选)",
		"上下文窗口大小，正整数 (可选)",
		fmt.Sprintf("采样温度，0 到 %g (可选)", validation.MaxTemperature),
	}
}

// RenderForm renders the form view with inputs
func RenderForm(inputs []textinput.Model, focusIndex int, title string, errorMsg string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", 50)))
	b.WriteString("\n\n")

	labels := FormLabels()
	hints := FormHints()

	for i, input := range inputs {
		if i == focusIndex {
			b.WriteString(formFocusedStyle.Render(labels[i]))
		} else {
			b.WriteString(formLabelStyle.Render(labels[i]))
		}
		b.WriteString(" ")
		b.WriteString(input.View())
		b.WriteString("\n")

		if i == focusIndex {
			b.WriteString(formLabelStyle.Render(""))
			b.WriteString(" ")
			b.WriteString(formHintStyle.Render(hints[i]))
			b.WriteString("\n")
		}
	}

	if errorMsg != "" {
		b.WriteString("\n")
		b.WriteString(formErrorStyle.Render("✗ " + errorMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", 50)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Tab/↓: 下一项 │ Shift+Tab/↑: 上一项 │ Enter: 保存 │ Esc: 取消"))

	return b.String()
}

// NextFormField moves focus to the next form field
func NextFormField(inputs []textinput.Model, currentFocus int) int {
	inputs[currentFocus].Blur()
	nextFocus := (currentFocus + 1) % len(inputs)
	inputs[nextFocus].Focus()
	return nextFocus
}

// PrevFormField moves focus to the previous form field
func PrevFormField(inputs []textinput.Model, currentFocus int) int {
	inputs[currentFocus].Blur()
	prevFocus := currentFocus - 1
	if prevFocus < 0 {
		prevFocus = len(inputs) - 1
	}
	inputs[prevFocus].Focus()
	return prevFocus
}
