package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"provsync/config"
	"provsync/config/models"
	"provsync/config/validation"
	"provsync/internal/providers"
)

// providerFlags holds the provider fields shared by add and edit
type providerFlags struct {
	id            string
	name          string
	providerType  string
	baseURL       string
	apiKey        string
	modelID       string
	contextWindow string
	temperature   string
	supportsImage bool
}

func (f *providerFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.name, "name", "n", "", "display name")
	fs.StringVarP(&f.providerType, "type", "t", "", "provider type ("+strings.Join(typeNames(), ", ")+")")
	fs.StringVarP(&f.baseURL, "url", "u", "", "API base URL")
	fs.StringVarP(&f.apiKey, "key", "k", "", "API key")
	fs.StringVarP(&f.modelID, "model", "m", "", "model id")
	fs.StringVar(&f.contextWindow, "context-window", "", "context window size")
	fs.StringVar(&f.temperature, "temperature", "", "sampling temperature")
	fs.BoolVar(&f.supportsImage, "images", false, "provider accepts image input")
}

// apply copies every flag that was set on the command line onto p
func (f *providerFlags) apply(fs *pflag.FlagSet, p *models.Provider) error {
	iv := validation.NewInputValidator()

	if fs.Changed("name") {
		if err := iv.ValidateName(f.name); err != nil {
			return err
		}
		p.Name = strings.TrimSpace(f.name)
	}
	if fs.Changed("type") {
		t := models.ProviderType(strings.TrimSpace(f.providerType))
		if _, err := providers.Get(t); err != nil {
			return err
		}
		p.Type = t
	}
	if fs.Changed("url") {
		if err := iv.ValidateURL(strings.TrimSpace(f.baseURL)); err != nil {
			return err
		}
		p.BaseURL = strings.TrimSpace(f.baseURL)
	}
	if fs.Changed("key") {
		p.APIKey = strings.TrimSpace(f.apiKey)
	}
	if fs.Changed("model") {
		p.ModelID = strings.TrimSpace(f.modelID)
	}
	if fs.Changed("context-window") || fs.Changed("temperature") {
		mc := models.ModelConfig{}
		if p.ModelConfig != nil {
			mc = *p.ModelConfig
		}
		if fs.Changed("context-window") {
			v, err := iv.ParseContextWindow(f.contextWindow)
			if err != nil {
				return err
			}
			mc.ContextWindow = v
		}
		if fs.Changed("temperature") {
			v, err := iv.ParseTemperature(f.temperature)
			if err != nil {
				return err
			}
			mc.Temperature = v
		}
		p.ModelConfig = &mc
		if mc.ContextWindow == nil && mc.Temperature == nil {
			p.ModelConfig = nil
		}
	}
	if fs.Changed("images") {
		v := f.supportsImage
		p.Capabilities = &models.Capabilities{SupportsImages: &v}
	}
	return nil
}

func typeNames() []string {
	names := make([]string, 0, len(models.ProviderTypes))
	for _, t := range providers.List() {
		if t != models.ProviderTypeNative {
			names = append(names, string(t))
		}
	}
	return names
}

var (
	addFlags     providerFlags
	addAsDefault bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	addFlags.register(addCmd.Flags())
	addCmd.Flags().StringVar(&addFlags.id, "id", "", "provider id (default: random UUID)")
	addCmd.Flags().BoolVar(&addAsDefault, "default", false, "make the new provider the default")
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("type")
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a provider",
	Long: `Add a provider to both stores

Examples:
  provsync add --name "OpenAI" --type openai --key sk-xxx --model gpt-4o
  provsync add --name "Local" --type ollama --default`,
	Args: cobra.NoArgs,
	RunE: withManager(func(ctx context.Context, cmd *cobra.Command, args []string, manager *config.Manager) error {
		p := models.Provider{ID: strings.TrimSpace(addFlags.id)}
		if err := addFlags.apply(cmd.Flags(), &p); err != nil {
			return err
		}
		if p.BaseURL == "" {
			if catalog, err := providers.Get(p.Type); err == nil {
				p.BaseURL = catalog.DefaultBaseURL()
			}
		}

		added, err := manager.AddProvider(ctx, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added provider: %s (%s)\n", added.Name, added.ID)

		if addAsDefault {
			if err := manager.SetDefaultProvider(ctx, added.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default provider: %s\n", added.Name)
		}
		return nil
	}),
}
