// Package main is the entry point for luminary.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sadnessbroccoli/luminary/internal/app"
	"github.com/sadnessbroccoli/luminary/internal/conversation"
	"github.com/sadnessbroccoli/luminary/internal/story"
	"github.com/sadnessbroccoli/luminary/internal/token"
	"github.com/sadnessbroccoli/luminary/internal/tui"
	"github.com/sadnessbroccoli/luminary/pkg/types"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "luminary",
	Short: "Chat with historical and contemporary celebrities in your terminal",
	Long: `Luminary is a terminal application for role-played conversations with
celebrities from a curated dataset. It streams replies from an LLM
provider and can generate standalone creative stories about any
celebrity in the collection.`,
	Version: version,
}

var chatCmd = &cobra.Command{
	Use:   "chat [celebrity]",
	Short: "Start a conversation with a celebrity",
	Long: `Start an interactive conversation. The celebrity may be given by id or
exact name; with --random one is picked for you; otherwise an
interactive picker is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChatCmd,
}

func runChatCmd(cmd *cobra.Command, args []string) error {
	random, _ := cmd.Flags().GetBool("random")
	providerName, _ := cmd.Flags().GetString("provider")

	application, err := app.New()
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer application.Close()

	celeb, err := resolveCelebrity(application, args, random)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, model, err := application.NewClient(ctx, providerName)
	if err != nil {
		return fmt.Errorf("failed to initialize provider: %w", err)
	}
	defer client.Close()

	chat, err := application.ChatSettings()
	if err != nil {
		return err
	}

	session := conversation.NewSession(celeb)
	engine := conversation.NewEngine(client, model, chat.MaxTokens, chat.Temperature,
		conversation.WithSampler(conversation.NewRandSampler(time.Now().UnixNano())))

	// Token counter is a diagnostic nicety; the chat works without it.
	counter, err := token.NewCounter("")
	if err != nil {
		counter = nil
	}

	p := tea.NewProgram(tui.New(session, engine, counter), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// resolveCelebrity picks the conversation partner from args, --random, or an
// interactive selector.
func resolveCelebrity(application *app.App, args []string, random bool) (*types.Celebrity, error) {
	store := application.Store

	if random {
		return store.Random(conversation.NewRandSampler(time.Now().UnixNano()))
	}

	if len(args) > 0 {
		if celeb, err := store.ByID(args[0]); err == nil {
			return celeb, nil
		}
		celeb, err := store.ByName(args[0])
		if err != nil {
			return nil, fmt.Errorf("celebrity %q not found", args[0])
		}
		return celeb, nil
	}

	all := store.All()
	options := make([]huh.Option[string], len(all))
	for i, c := range all {
		options[i] = huh.NewOption(fmt.Sprintf("%s（%s）", c.Name, c.Category), c.ID)
	}

	var id string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("选择对话人物").
				Options(options...).
				Value(&id),
		),
	)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("celebrity selection failed: %w", err)
	}

	return store.ByID(id)
}

var storyCmd = &cobra.Command{
	Use:   "story [celebrity]",
	Short: "Generate a creative story about a celebrity",
	Long: `Generate a standalone story. All parameters can be given as flags;
missing ones are collected through an interactive form.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStoryCmd,
}

func runStoryCmd(cmd *cobra.Command, args []string) error {
	storyType, _ := cmd.Flags().GetString("type")
	length, _ := cmd.Flags().GetInt("length")
	audiences, _ := cmd.Flags().GetStringSlice("audience")
	custom, _ := cmd.Flags().GetString("prompt")
	outPath, _ := cmd.Flags().GetString("out")
	htmlOut, _ := cmd.Flags().GetBool("html")
	providerName, _ := cmd.Flags().GetString("provider")

	application, err := app.New()
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer application.Close()

	celeb, err := resolveCelebrity(application, args, false)
	if err != nil {
		return err
	}

	req := types.CreativeRequest{
		Celebrity:         celeb,
		StoryType:         storyType,
		TargetLength:      length,
		Audience:          audiences,
		CustomInstruction: custom,
	}

	// Only prompt interactively when no flags narrowed the request.
	if storyType == "" && length == 0 && len(audiences) == 0 {
		if err := runStoryForm(&req); err != nil {
			return err
		}
	}

	ctx := context.Background()
	client, model, err := application.NewClient(ctx, providerName)
	if err != nil {
		return fmt.Errorf("failed to initialize provider: %w", err)
	}
	defer client.Close()

	fmt.Printf("正在为 %s 创作%s...\n", celeb.Name, req.StoryType)

	generator := story.NewGenerator(client, model)
	result, err := generator.Generate(ctx, req)
	if err != nil {
		return err
	}

	if outPath == "" {
		outPath = result.Filename()
		if htmlOut {
			outPath = strings.TrimSuffix(outPath, ".txt") + ".html"
		}
	}

	if htmlOut {
		err = result.WriteHTML(outPath)
	} else {
		err = result.WriteText(outPath)
	}
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(result.Content)
	fmt.Printf("\n已保存到 %s\n", outPath)
	if result.Usage.TotalTokens > 0 {
		fmt.Printf("tokens: %d prompt / %d completion\n",
			result.Usage.PromptTokens, result.Usage.CompletionTokens)
	}

	return nil
}

// runStoryForm collects story parameters interactively.
func runStoryForm(req *types.CreativeRequest) error {
	typeOptions := make([]huh.Option[string], len(types.StoryTypes))
	for i, t := range types.StoryTypes {
		typeOptions[i] = huh.NewOption(t, t)
	}

	audienceOptions := make([]huh.Option[string], len(types.Audiences))
	for i, a := range types.Audiences {
		audienceOptions[i] = huh.NewOption(a, a)
	}

	lengthStr := fmt.Sprintf("%d", types.DefaultStoryLength)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("故事类型").
				Options(typeOptions...).
				Value(&req.StoryType),
			huh.NewMultiSelect[string]().
				Title("目标受众").
				Options(audienceOptions...).
				Value(&req.Audience),
		),
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("目标长度（%d-%d 字）", types.MinStoryLength, types.MaxStoryLength)).
				Value(&lengthStr).
				Validate(func(s string) error {
					var n int
					if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n); err != nil {
						return fmt.Errorf("请输入数字")
					}
					return nil
				}),
			huh.NewText().
				Title("额外要求（可选）").
				CharLimit(2000).
				Value(&req.CustomInstruction),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("story setup failed: %w", err)
	}

	fmt.Sscanf(strings.TrimSpace(lengthStr), "%d", &req.TargetLength)
	return nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List celebrities by category",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		store := application.Store
		counts := store.CategoryCounts()

		categories := make([]string, 0, len(counts))
		for c := range counts {
			categories = append(categories, c)
		}
		sort.Strings(categories)

		fmt.Printf("共 %d 位人物\n\n", store.Len())
		for _, category := range categories {
			fmt.Printf("%s（%d）\n", category, counts[category])
			for _, c := range store.All() {
				name := c.Category
				if name == "" {
					name = "未知"
				}
				if name != category {
					continue
				}
				fmt.Printf("  %-12s %s\n", c.ID, c.Name)
			}
			fmt.Println()
		}

		if skipped := store.Skipped; len(skipped) > 0 {
			fmt.Printf("跳过 %d 条无效记录\n", len(skipped))
		}

		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the celebrity collection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		application, err := app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		results, err := application.Store.Search(query, 20)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			fmt.Printf("没有找到与 %q 相关的人物\n", query)
			return nil
		}

		for _, c := range results {
			fmt.Printf("  %-12s %s（%s）\n", c.ID, c.Name, c.Category)
		}
		return nil
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Configure LLM provider authentication",
	RunE:  runAuthCmd,
}

func runAuthCmd(cmd *cobra.Command, args []string) error {
	listFlag, _ := cmd.Flags().GetBool("list")
	removeFlag, _ := cmd.Flags().GetString("remove")
	providerFlag, _ := cmd.Flags().GetString("provider")

	application, err := app.New()
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer application.Close()

	if listFlag {
		return listProviders(application)
	}

	if removeFlag != "" {
		return removeProvider(application, removeFlag)
	}

	if providerFlag != "" {
		return configureProvider(application, providerFlag)
	}

	return interactiveAuth(application)
}

func listProviders(application *app.App) error {
	config, err := application.Config.LoadGlobalConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Configured providers:")
	fmt.Println()

	providers := []struct {
		name  string
		label string
	}{
		{"deepseek", "DeepSeek"},
		{"gemini", "Google Gemini"},
	}

	hasAny := false
	for _, p := range providers {
		providerConfig, exists := config.Providers[p.name]
		if !exists || (providerConfig.APIKey == "" && providerConfig.BaseURL == "") {
			continue
		}

		hasAny = true
		defaultMark := ""
		if config.Defaults.Provider == p.name {
			defaultMark = " (default)"
		}

		fmt.Printf("  %s%s\n", p.label, defaultMark)

		if providerConfig.APIKey != "" {
			fmt.Printf("    API Key: %s\n", app.MaskAPIKey(providerConfig.APIKey))
		}
		if providerConfig.DefaultModel != "" {
			fmt.Printf("    Model: %s\n", providerConfig.DefaultModel)
		}
		if providerConfig.BaseURL != "" {
			fmt.Printf("    Base URL: %s\n", providerConfig.BaseURL)
		}
		fmt.Println()
	}

	if !hasAny {
		fmt.Println("  No providers configured.")
		fmt.Println()
		fmt.Println("Run 'luminary auth' to configure a provider.")
	}

	return nil
}

func removeProvider(application *app.App, providerName string) error {
	config, err := application.Config.LoadGlobalConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, exists := config.Providers[providerName]; !exists {
		return fmt.Errorf("provider '%s' is not configured", providerName)
	}

	delete(config.Providers, providerName)

	if config.Defaults.Provider == providerName {
		config.Defaults.Provider = ""
		for name := range config.Providers {
			config.Defaults.Provider = name
			break
		}
	}

	if err := application.Config.SaveGlobalConfig(config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Provider '%s' removed.\n", providerName)
	return nil
}

func configureProvider(application *app.App, providerName string) error {
	switch providerName {
	case "deepseek", "gemini":
		return setupProvider(application, providerName)
	default:
		return fmt.Errorf("unknown provider: %s (supported: deepseek, gemini)", providerName)
	}
}

func interactiveAuth(application *app.App) error {
	var providerName string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select provider to configure").
				Options(
					huh.NewOption("DeepSeek", "deepseek"),
					huh.NewOption("Google Gemini", "gemini"),
				).
				Value(&providerName),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("provider selection failed: %w", err)
	}

	return setupProvider(application, providerName)
}

func setupProvider(application *app.App, providerName string) error {
	config, err := application.Config.LoadGlobalConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if config.Providers == nil {
		config.Providers = make(map[string]*types.ProviderConfig)
	}

	providerConfig := config.Providers[providerName]
	if providerConfig == nil {
		providerConfig = &types.ProviderConfig{}
	}

	switch providerName {
	case "deepseek":
		if err := setupDeepSeek(providerConfig); err != nil {
			return err
		}
	case "gemini":
		if err := setupGemini(providerConfig); err != nil {
			return err
		}
	}

	config.Providers[providerName] = providerConfig

	var setDefault bool
	defaultForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Set as default provider?").
				Value(&setDefault),
		),
	)

	if err := defaultForm.Run(); err != nil {
		return fmt.Errorf("default selection failed: %w", err)
	}

	if setDefault {
		config.Defaults.Provider = providerName
	}

	if err := application.Config.SaveGlobalConfig(config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("\n✓ %s configured successfully\n", providerName)
	return nil
}

func setupDeepSeek(config *types.ProviderConfig) error {
	var apiKey, model string

	currentKey := ""
	if config.APIKey != "" {
		currentKey = " (current: " + app.MaskAPIKey(config.APIKey) + ")"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("DeepSeek API Key"+currentKey).
				Placeholder("sk-...").
				Value(&apiKey),
			huh.NewSelect[string]().
				Title("Default model").
				Options(
					huh.NewOption("DeepSeek Chat (recommended)", "deepseek-chat"),
					huh.NewOption("DeepSeek Reasoner", "deepseek-reasoner"),
				).
				Value(&model),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("DeepSeek setup failed: %w", err)
	}

	if apiKey != "" {
		config.APIKey = apiKey
	}
	if model != "" {
		config.DefaultModel = model
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.deepseek.com"
	}

	return nil
}

func setupGemini(config *types.ProviderConfig) error {
	var apiKey, model string

	currentKey := ""
	if config.APIKey != "" {
		currentKey = " (current: " + app.MaskAPIKey(config.APIKey) + ")"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key"+currentKey).
				Placeholder("Get from ai.google.dev").
				Value(&apiKey),
			huh.NewSelect[string]().
				Title("Default model").
				Options(
					huh.NewOption("Gemini 2.5 Flash (recommended)", "gemini-2.5-flash"),
					huh.NewOption("Gemini 2.5 Pro", "gemini-2.5-pro"),
					huh.NewOption("Gemini 2.0 Flash", "gemini-2.0-flash"),
				).
				Value(&model),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("Gemini setup failed: %w", err)
	}

	if apiKey != "" {
		config.APIKey = apiKey
	}
	if model != "" {
		config.DefaultModel = model
	}

	return nil
}

func init() {
	chatCmd.Flags().Bool("random", false, "Pick a random celebrity")
	chatCmd.Flags().StringP("provider", "p", "", "LLM provider to use (deepseek, gemini)")

	storyCmd.Flags().StringP("type", "t", "", "Story type")
	storyCmd.Flags().IntP("length", "l", 0, "Target length in characters")
	storyCmd.Flags().StringSliceP("audience", "a", nil, "Target audiences")
	storyCmd.Flags().String("prompt", "", "Extra instruction for the story")
	storyCmd.Flags().StringP("out", "o", "", "Output file path")
	storyCmd.Flags().Bool("html", false, "Write an HTML page instead of plain text")
	storyCmd.Flags().StringP("provider", "p", "", "LLM provider to use (deepseek, gemini)")

	authCmd.Flags().BoolP("list", "l", false, "List configured providers")
	authCmd.Flags().StringP("remove", "r", "", "Remove a provider configuration")
	authCmd.Flags().StringP("provider", "p", "", "Configure a specific provider")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(storyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(authCmd)
}
