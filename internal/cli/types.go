package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// TypesOptions holds flags for the types command.
type TypesOptions struct {
	*RootOptions
	Dir string // overrides the config's types_dir
}

// TypeInfo describes one registered type.
type TypeInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	IDAttribute string `json:"id_attribute,omitempty"`
	Model       string `json:"model,omitempty"`
	JSONKey     string `json:"json_key,omitempty"`
	URL         string `json:"url,omitempty"`
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TypesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "types",
		Short: "Validate and list the CUE type definitions",
		Long: `Load the CUE type definitions and list every model and collection.

A definition error (unknown field, wrong type, collection without a model)
exits with code 2 and reports the CUE position.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "types directory (default: config types_dir)")
	return cmd
}

func runTypes(cmd *cobra.Command, opts *TypesOptions) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	dir := opts.Dir
	if dir == "" {
		cfg, err := LoadConfig(opts.RootOptions)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeConfig, err)
		}
		dir = cfg.TypesDir
	}

	reg, err := LoadRegistry(dir)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeTypes, err)
	}

	var infos []TypeInfo
	models, collections := reg.Names()
	for _, name := range models {
		t, err := reg.ModelConstructor(name)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeTypes, err)
		}
		infos = append(infos, TypeInfo{Name: name, Kind: "model", IDAttribute: t.Def.IDAttr(), JSONKey: t.Def.JSONKey, URL: t.Def.URL})
	}
	for _, name := range collections {
		t, err := reg.CollectionConstructor(name)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeTypes, err)
		}
		infos = append(infos, TypeInfo{Name: name, Kind: "collection", Model: t.Def.Model, JSONKey: t.Def.JSONKey, URL: t.Def.URL})
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	w := formatter.Writer
	for _, info := range infos {
		switch info.Kind {
		case "model":
			fmt.Fprintf(w, "model %s (id: %s)", info.Name, info.IDAttribute)
		default:
			fmt.Fprintf(w, "collection %s (of %s)", info.Name, info.Model)
		}
		if info.JSONKey != "" {
			fmt.Fprintf(w, " json_key=%s", info.JSONKey)
		}
		if info.URL != "" {
			fmt.Fprintf(w, " url=%s", info.URL)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d models, %d collections\n", len(models), len(collections))
	return nil
}
