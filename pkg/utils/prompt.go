package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"

	"github.com/picogrid/dart-simulations/pkg/simulation"
)

// SkipPromptsEnv disables interactive prompts when set to "true"
const SkipPromptsEnv = "DART_SKIP_PROMPTS"

// PromptForParameters collects a value for every parameter. The default
// shown for a parameter is its value in current, else DART_<NAME>, else the
// parameter declaration. Without a terminal, or with
// DART_SKIP_PROMPTS=true, the defaults are used as given and optional
// parameters without one are left out.
func PromptForParameters(params []simulation.Parameter, current map[string]interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	interactive := Interactive()

	for _, param := range params {
		if v, ok := current[param.Name]; ok {
			param.Default = v
		} else if envValue := os.Getenv(EnvKey(param.Name)); envValue != "" {
			parsed, err := ParseValue(envValue, param)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", EnvKey(param.Name), err)
			}
			param.Default = parsed
		}
		value, err := promptForParameter(param, interactive)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", param.Name, err)
		}
		if value == nil {
			continue
		}
		result[param.Name] = value
	}

	return result, nil
}

// EnvKey is the environment variable holding a parameter value
func EnvKey(name string) string {
	return "DART_" + strings.ToUpper(name)
}

// Interactive reports whether prompts can be shown
func Interactive() bool {
	if os.Getenv(SkipPromptsEnv) == "true" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func promptForParameter(param simulation.Parameter, interactive bool) (interface{}, error) {
	if !interactive {
		if param.Default == nil {
			if param.Required {
				return nil, fmt.Errorf("required parameter %s not provided and no default available", param.Name)
			}
			return nil, nil
		}
		value, err := ParseValue(fmt.Sprintf("%v", param.Default), param)
		if err != nil {
			return nil, err
		}
		return value, nil
	}

	switch param.Type {
	case "integer", "float":
		return promptNumber(param)
	case "string":
		return promptString(param)
	case "boolean":
		return promptBoolean(param)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
}

// ParseValue parses a raw value according to the parameter type and checks
// its range and options
func ParseValue(value string, param simulation.Parameter) (interface{}, error) {
	value = strings.TrimSpace(value)
	switch param.Type {
	case "integer":
		v, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid integer: %w", err)
		}
		return v, checkRange(param, float64(v))
	case "float":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number: %w", err)
		}
		return v, checkRange(param, v)
	case "string":
		if len(param.Options) > 0 && !contains(param.Options, value) {
			return nil, fmt.Errorf("value must be one of %s", strings.Join(param.Options, ", "))
		}
		return value, nil
	case "boolean":
		return strconv.ParseBool(value)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
}

func checkRange(param simulation.Parameter, value float64) error {
	if param.Min != nil && value < toFloat64(param.Min) {
		return fmt.Errorf("value must be at least %v", param.Min)
	}
	if param.Max != nil && value > toFloat64(param.Max) {
		return fmt.Errorf("value must be at most %v", param.Max)
	}
	return nil
}

func promptNumber(param simulation.Parameter) (interface{}, error) {
	defaultStr := ""
	if param.Default != nil {
		defaultStr = fmt.Sprintf("%v", param.Default)
	}

	prompt := &survey.Input{
		Message: param.Description,
		Default: defaultStr,
	}

	var result string
	err := survey.AskOne(prompt, &result, survey.WithValidator(survey.ComposeValidators(
		survey.Required,
		func(val interface{}) error {
			_, err := ParseValue(val.(string), param)
			return err
		},
	)))
	if err != nil {
		return nil, err
	}
	return ParseValue(result, param)
}

func promptString(param simulation.Parameter) (string, error) {
	defaultStr := ""
	if param.Default != nil {
		defaultStr = fmt.Sprintf("%v", param.Default)
	}

	if len(param.Options) > 0 {
		prompt := &survey.Select{
			Message: param.Description,
			Options: param.Options,
		}
		if contains(param.Options, defaultStr) {
			prompt.Default = defaultStr
		}

		var result string
		if err := survey.AskOne(prompt, &result); err != nil {
			return "", err
		}
		return result, nil
	}

	prompt := &survey.Input{
		Message: param.Description,
		Default: defaultStr,
	}

	var result string
	var validators []survey.Validator
	if param.Required {
		validators = append(validators, survey.Required)
	}

	if err := survey.AskOne(prompt, &result, survey.WithValidator(survey.ComposeValidators(validators...))); err != nil {
		return "", err
	}

	return result, nil
}

func promptBoolean(param simulation.Parameter) (bool, error) {
	defaultBool := false
	if param.Default != nil {
		switch v := param.Default.(type) {
		case bool:
			defaultBool = v
		case string:
			defaultBool = v == "true" || v == "yes" || v == "1"
		}
	}

	prompt := &survey.Confirm{
		Message: param.Description,
		Default: defaultBool,
	}

	var result bool
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}

	return result, nil
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if strings.EqualFold(o, value) {
			return true
		}
	}
	return false
}

func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
