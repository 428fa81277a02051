package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/picogrid/dart-simulations/pkg/config"
	"github.com/picogrid/dart-simulations/pkg/logger"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved parameter profiles",
	Long:  `Manage named sets of mission parameter overrides stored in $HOME/.dart-sim/profiles.yaml`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	RunE:  listProfiles,
}

var profileAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or replace a profile",
	RunE:  addProfile,
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a profile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  removeProfile,
}

var profileUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Apply a profile to every run by default (no name clears it)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  useProfile,
}

func init() {
	profileAddCmd.Flags().String("name", "", "profile name")
	profileAddCmd.Flags().String("description", "", "profile description")
	profileAddCmd.Flags().StringToString("set", nil, "parameter key=value (repeatable); prompts when omitted")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileRemoveCmd)
	profileCmd.AddCommand(profileUseCmd)
}

func listProfiles(cmd *cobra.Command, args []string) error {
	profiles, err := config.LoadProfiles()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	if len(profiles.Profiles) == 0 {
		fmt.Println("No profiles configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tPARAMETERS\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "----\t----------\t-----------")

	for _, p := range profiles.Profiles {
		name := p.Name
		if name == profiles.Selected {
			name += " *"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, formatParameters(p.Parameters), p.Description)
	}

	return w.Flush()
}

func formatParameters(params map[string]string) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}
	return strings.Join(parts, " ")
}

func addProfile(cmd *cobra.Command, args []string) error {
	profiles, err := config.LoadProfiles()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	var profile config.Profile
	profile.Name, _ = cmd.Flags().GetString("name")
	profile.Description, _ = cmd.Flags().GetString("description")
	profile.Parameters, _ = cmd.Flags().GetStringToString("set")

	if profile.Name == "" {
		namePrompt := &survey.Input{
			Message: "Profile name:",
		}
		if err := survey.AskOne(namePrompt, &profile.Name, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		descPrompt := &survey.Input{
			Message: "Description:",
		}
		if err := survey.AskOne(descPrompt, &profile.Description); err != nil {
			return err
		}
	}

	if _, exists := profiles.Find(profile.Name); exists {
		replace := false
		if err := survey.AskOne(&survey.Confirm{
			Message: fmt.Sprintf("Profile %s exists. Replace it?", profile.Name),
		}, &replace); err != nil {
			return err
		}
		if !replace {
			return nil
		}
	}

	if len(profile.Parameters) == 0 {
		params, err := promptProfileParameters()
		if err != nil {
			return err
		}
		profile.Parameters = params
	}

	if err := profiles.Add(profile); err != nil {
		return err
	}
	if err := config.SaveProfiles(profiles); err != nil {
		return fmt.Errorf("failed to save profiles: %w", err)
	}

	logger.Successf("Profile %s saved", profile.Name)
	return nil
}

const doneOption = "(done)"

func promptProfileParameters() (map[string]string, error) {
	params := make(map[string]string)
	defaults := config.GetDefaultConfig().Values()

	for {
		var key string
		keyPrompt := &survey.Select{
			Message: "Parameter to set:",
			Options: append([]string{doneOption}, config.OverrideKeys()...),
		}
		if err := survey.AskOne(keyPrompt, &key); err != nil {
			return nil, err
		}
		if key == doneOption {
			return params, nil
		}

		var value string
		valuePrompt := &survey.Input{
			Message: key + ":",
			Default: fmt.Sprintf("%v", defaults[key]),
		}
		validate := func(val interface{}) error {
			_, err := config.ParseOverride(key, val.(string))
			return err
		}
		if err := survey.AskOne(valuePrompt, &value, survey.WithValidator(validate)); err != nil {
			return nil, err
		}
		params[key] = strings.TrimSpace(value)
	}
}

func selectProfile(profiles *config.Profiles, args []string, message string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if len(profiles.Profiles) == 0 {
		return "", fmt.Errorf("no profiles configured")
	}

	options := make([]string, len(profiles.Profiles))
	for i, p := range profiles.Profiles {
		options[i] = p.Name
	}

	var selected string
	if err := survey.AskOne(&survey.Select{Message: message, Options: options}, &selected); err != nil {
		return "", err
	}
	return selected, nil
}

func removeProfile(cmd *cobra.Command, args []string) error {
	profiles, err := config.LoadProfiles()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	name, err := selectProfile(profiles, args, "Select profile to remove:")
	if err != nil {
		return err
	}

	if err := profiles.Remove(name); err != nil {
		return err
	}
	if err := config.SaveProfiles(profiles); err != nil {
		return fmt.Errorf("failed to save profiles: %w", err)
	}

	logger.Successf("Profile %s removed", name)
	return nil
}

func useProfile(cmd *cobra.Command, args []string) error {
	profiles, err := config.LoadProfiles()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	if len(args) == 0 {
		profiles.Selected = ""
	} else {
		if _, ok := profiles.Find(args[0]); !ok {
			return fmt.Errorf("profile %s not found", args[0])
		}
		profiles.Selected = args[0]
	}
	if err := config.SaveProfiles(profiles); err != nil {
		return fmt.Errorf("failed to save profiles: %w", err)
	}

	if profiles.Selected == "" {
		logger.Success("No profile applied by default")
	} else {
		logger.Successf("Profile %s applied by default", profiles.Selected)
	}
	return nil
}
