package tui

import (
	"context"

	"provsync/config"
	"provsync/config/models"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents the current view state
type ViewState int

const (
	ViewMain   ViewState = iota // Provider list
	ViewDetail                  // Detail view
	ViewAdd                     // Add provider form
	ViewEdit                    // Edit provider form
	ViewDelete                  // Delete confirmation dialog
	ViewHelp                    // Help panel
)

// Model is the state of the settings page
type Model struct {
	ctx     context.Context
	manager *config.Manager
	keys    KeyMap

	providers []models.Provider // Provider list, in stored order
	defaultID string            // Current default provider id
	cursor    int               // Current cursor position
	selected  int               // Provider shown in the detail view
	viewState ViewState

	// Form related
	formInputs []textinput.Model
	formFocus  int
	formTypes  []models.ProviderType // Types the type field cycles through
	editing    models.Provider       // Provider being edited

	// Messages and errors
	message  string
	errorMsg string

	width  int
	height int

	scrollOffset     int
	helpScrollOffset int
}

// NewModel creates a new settings page model
func NewModel(ctx context.Context, manager *config.Manager) Model {
	return Model{
		ctx:        ctx,
		manager:    manager,
		keys:       DefaultKeyMap(),
		providers:  []models.Provider{},
		selected:   -1,
		viewState:  ViewMain,
		formInputs: []textinput.Model{},
		width:      80,
		height:     24,
	}
}

// Init loads the providers from the stores
func (m Model) Init() tea.Cmd {
	return loadProviders(m.ctx, m.manager, false)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.adjustScrollOffset()
		return m, nil

	case ProvidersLoadedMsg:
		m.providers = msg.Config.Providers
		m.defaultID = msg.Config.DefaultProviderID
		// 删除后光标可能越界
		if len(m.providers) > 0 && m.cursor >= len(m.providers) {
			m.cursor = len(m.providers) - 1
		}
		if m.selected >= len(m.providers) {
			m.selected = -1
		}
		m.adjustScrollOffset()
		return m, nil

	case DefaultChangedMsg:
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.defaultID = msg.ID
		m.message = "默认提供商已设为: " + m.providerName(msg.ID)
		return m, loadProviders(m.ctx, m.manager, false)

	case ProviderAddedMsg:
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.message = "提供商已添加: " + msg.Provider.Name
		m.resetForm()
		m.viewState = ViewMain
		return m, loadProviders(m.ctx, m.manager, false)

	case ProviderUpdatedMsg:
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.message = "提供商已更新: " + msg.Provider.Name
		m.resetForm()
		m.viewState = ViewMain
		return m, loadProviders(m.ctx, m.manager, false)

	case ProviderDeletedMsg:
		m.viewState = ViewMain
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.message = "提供商已删除: " + msg.Name
		return m, loadProviders(m.ctx, m.manager, false)

	case errMsg:
		m.errorMsg = string(msg)
		return m, nil
	}

	return m, nil
}

// handleKeyMsg dispatches keyboard input by view
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.viewState {
	case ViewMain:
		return m.handleMainViewKeys(msg)
	case ViewDetail:
		return m.handleDetailViewKeys(msg)
	case ViewAdd, ViewEdit:
		return m.handleFormViewKeys(msg)
	case ViewDelete:
		return m.handleDeleteViewKeys(msg)
	case ViewHelp:
		return m.handleHelpViewKeys(msg)
	default:
		return m, nil
	}
}

// handleMainViewKeys handles keyboard input in the provider list
func (m Model) handleMainViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Clear messages on any key
	m.message = ""
	m.errorMsg = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		m.moveDown()
	case key.Matches(msg, m.keys.Up):
		m.moveUp()
	case key.Matches(msg, m.keys.Top):
		m.moveToTop()
	case key.Matches(msg, m.keys.Bottom):
		m.moveToBottom()

	case key.Matches(msg, m.keys.Select):
		if _, ok := m.current(); ok {
			m.selected = m.cursor
			m.viewState = ViewDetail
		}

	case key.Matches(msg, m.keys.SetDefault):
		if p, ok := m.current(); ok {
			if p.ID == m.defaultID {
				m.message = p.Name + " 已经是默认提供商"
				return m, nil
			}
			return m, setDefaultProvider(m.ctx, m.manager, p.ID)
		}

	case key.Matches(msg, m.keys.Add):
		m.initAddForm()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Edit):
		if m.initEditForm() {
			return m, textinput.Blink
		}

	case key.Matches(msg, m.keys.Delete):
		return m.beginDelete()

	case key.Matches(msg, m.keys.Reload):
		return m, loadProviders(m.ctx, m.manager, true)

	case key.Matches(msg, m.keys.Help):
		m.viewState = ViewHelp
		m.helpScrollOffset = 0
	}
	return m, nil
}

// handleDetailViewKeys handles keyboard input in the detail view
func (m Model) handleDetailViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel), msg.String() == "q":
		m.viewState = ViewMain
		return m, nil

	case key.Matches(msg, m.keys.SetDefault):
		if p, ok := m.current(); ok && p.ID != m.defaultID {
			return m, setDefaultProvider(m.ctx, m.manager, p.ID)
		}

	case key.Matches(msg, m.keys.Edit):
		if m.initEditForm() {
			return m, textinput.Blink
		}

	case key.Matches(msg, m.keys.Delete):
		return m.beginDelete()
	}
	return m, nil
}

// beginDelete opens the confirmation dialog, refusing up front what the
// manager would reject anyway
func (m Model) beginDelete() (tea.Model, tea.Cmd) {
	p, ok := m.current()
	if !ok {
		return m, nil
	}
	switch {
	case p.IsBuiltIn:
		m.errorMsg = "内置提供商不能删除"
	case len(m.providers) <= 1:
		m.errorMsg = "至少需要保留一个提供商"
	default:
		m.errorMsg = ""
		m.viewState = ViewDelete
	}
	return m, nil
}

// handleFormViewKeys handles keyboard input in the add/edit form
func (m Model) handleFormViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.viewState = ViewMain
		m.errorMsg = ""
		m.resetForm()
		return m, nil

	case "tab", "down":
		m.formFocus = NextFormField(m.formInputs, m.formFocus)
		return m, nil

	case "shift+tab", "up":
		m.formFocus = PrevFormField(m.formInputs, m.formFocus)
		return m, nil

	case "enter":
		data := GetFormData(m.formInputs)
		if err := data.Validate(); err != nil {
			m.errorMsg = err.Error()
			return m, nil
		}
		m.errorMsg = ""
		if m.viewState == ViewAdd {
			return m, m.submitAddForm(data)
		}
		return m, m.submitEditForm(data)
	}

	// 类型字段只能在已知类型之间切换
	if m.formFocus == FormFieldType {
		input := &m.formInputs[FormFieldType]
		switch msg.String() {
		case "right", "l":
			input.SetValue(CycleType(m.formTypes, input.Value(), 1))
		case "left", "h":
			input.SetValue(CycleType(m.formTypes, input.Value(), -1))
		}
		return m, nil
	}

	if m.formFocus >= 0 && m.formFocus < len(m.formInputs) {
		var cmd tea.Cmd
		m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
		return m, cmd
	}
	return m, nil
}

// initAddForm initializes the form for adding a new provider
func (m *Model) initAddForm() {
	m.formInputs = FormInputs()
	m.formFocus = 0
	m.formTypes = SelectableTypes(false)
	m.editing = models.Provider{}
	m.formInputs[FormFieldType].SetValue(string(m.formTypes[0]))
	m.viewState = ViewAdd
	m.errorMsg = ""
}

// initEditForm initializes the form for the provider under the cursor
func (m *Model) initEditForm() bool {
	p, ok := m.current()
	if !ok {
		return false
	}

	m.formInputs = FormInputs()
	m.formFocus = 0
	m.formTypes = SelectableTypes(p.IsBuiltIn)
	m.editing = p
	m.viewState = ViewEdit
	m.errorMsg = ""
	SetFormData(m.formInputs, FormDataFromProvider(p))
	return true
}

func (m *Model) resetForm() {
	m.formInputs = []textinput.Model{}
	m.formFocus = 0
	m.formTypes = nil
	m.editing = models.Provider{}
}

// submitAddForm creates a command to add a new provider
func (m *Model) submitAddForm(data FormData) tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		p, err := data.Apply(models.Provider{})
		if err != nil {
			return ProviderAddedMsg{Err: err}
		}
		added, err := manager.AddProvider(ctx, p)
		return ProviderAddedMsg{Provider: added, Err: err}
	}
}

// submitEditForm creates a command to update the provider being edited
func (m *Model) submitEditForm(data FormData) tea.Cmd {
	ctx, manager, base := m.ctx, m.manager, m.editing
	if base.ID == "" {
		return nil
	}
	return func() tea.Msg {
		p, err := data.Apply(base)
		if err != nil {
			return ProviderUpdatedMsg{Provider: base, Err: err}
		}
		updated, err := manager.UpdateProvider(ctx, p)
		return ProviderUpdatedMsg{Provider: updated, Err: err}
	}
}

// handleDeleteViewKeys handles keyboard input in the delete confirmation
func (m Model) handleDeleteViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "y", "Y":
		if p, ok := m.current(); ok {
			return m, deleteProvider(m.ctx, m.manager, p)
		}
		m.viewState = ViewMain
		return m, nil

	case "n", "N", "esc":
		m.viewState = ViewMain
		m.message = ""
		m.errorMsg = ""
		return m, nil
	}
	return m, nil
}

// handleHelpViewKeys handles keyboard input in the help view
func (m Model) handleHelpViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "q", "?":
		m.viewState = ViewMain
		m.helpScrollOffset = 0
	case "j", "down":
		m.helpScrollOffset++
		m.adjustHelpScrollOffset()
	case "k", "up":
		if m.helpScrollOffset > 0 {
			m.helpScrollOffset--
		}
	case "g":
		m.helpScrollOffset = 0
	case "G":
		m.helpScrollOffset = len(m.buildHelpLines())
		m.adjustHelpScrollOffset()
	}
	return m, nil
}

// current returns the provider under the cursor
func (m Model) current() (models.Provider, bool) {
	if m.cursor < 0 || m.cursor >= len(m.providers) {
		return models.Provider{}, false
	}
	return m.providers[m.cursor], true
}

func (m Model) providerName(id string) string {
	for _, p := range m.providers {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}

func (m *Model) moveUp() {
	if m.cursor > 0 {
		m.cursor--
		m.adjustScrollOffset()
	}
}

func (m *Model) moveDown() {
	if m.cursor < len(m.providers)-1 {
		m.cursor++
		m.adjustScrollOffset()
	}
}

func (m *Model) moveToTop() {
	m.cursor = 0
	m.scrollOffset = 0
}

func (m *Model) moveToBottom() {
	if len(m.providers) > 0 {
		m.cursor = len(m.providers) - 1
		m.adjustScrollOffset()
	}
}

// getVisibleListHeight returns the number of list rows that fit
func (m *Model) getVisibleListHeight() int {
	// title, separator, blank, scroll indicators, separator, status bar
	reserved := 9
	if m.height-reserved < 1 {
		return 1
	}
	return m.height - reserved
}

// adjustScrollOffset keeps the cursor inside the visible window
func (m *Model) adjustScrollOffset() {
	visible := m.getVisibleListHeight()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+visible {
		m.scrollOffset = m.cursor - visible + 1
	}
	maxOffset := len(m.providers) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if m.scrollOffset > maxOffset {
		m.scrollOffset = maxOffset
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m *Model) getVisibleHelpHeight() int {
	available := m.height - 5
	if available < 1 {
		available = 1
	}
	return available
}

func (m *Model) adjustHelpScrollOffset() {
	maxOffset := len(m.buildHelpLines()) - m.getVisibleHelpHeight()
	if maxOffset < 0 {
		maxOffset = 0
	}
	if m.helpScrollOffset > maxOffset {
		m.helpScrollOffset = maxOffset
	}
	if m.helpScrollOffset < 0 {
		m.helpScrollOffset = 0
	}
}

// View renders the UI
func (m Model) View() string {
	switch m.viewState {
	case ViewHelp:
		return m.RenderHelpView()
	case ViewDetail:
		return m.RenderDetailView()
	case ViewAdd, ViewEdit:
		return m.RenderFormViewFull()
	case ViewDelete:
		return m.RenderDeleteConfirm()
	default:
		return m.RenderMainView()
	}
}

// RenderFormViewFull renders the complete form view
func (m Model) RenderFormViewFull() string {
	title := "添加提供商"
	if m.viewState == ViewEdit {
		title = "编辑提供商"
	}
	return RenderForm(m.formInputs, m.formFocus, title, m.errorMsg)
}

// loadProviders creates a command that returns the providers config. With
// fresh set the stores are read again instead of using the cache.
func loadProviders(ctx context.Context, manager *config.Manager, fresh bool) tea.Cmd {
	return func() tea.Msg {
		if fresh {
			return ProvidersLoadedMsg{Config: manager.Load(ctx)}
		}
		return ProvidersLoadedMsg{Config: manager.Config(ctx)}
	}
}

// setDefaultProvider creates a command to change the default provider
func setDefaultProvider(ctx context.Context, manager *config.Manager, id string) tea.Cmd {
	return func() tea.Msg {
		return DefaultChangedMsg{ID: id, Err: manager.SetDefaultProvider(ctx, id)}
	}
}

// deleteProvider creates a command to delete a provider
func deleteProvider(ctx context.Context, manager *config.Manager, p models.Provider) tea.Cmd {
	return func() tea.Msg {
		return ProviderDeletedMsg{ID: p.ID, Name: p.Name, Err: manager.DeleteProvider(ctx, p.ID)}
	}
}
