package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fetchr/internal/freshness"
	"github.com/roach88/fetchr/internal/registry"
	"github.com/roach88/fetchr/internal/spec"
	"github.com/roach88/fetchr/internal/store"
)

// KeyInfo holds the keys derived from one spec.
type KeyInfo struct {
	Key       string `json:"key"`
	Freshness string `json:"freshness"`
	Store     string `json:"store"`
}

// NewKeyCommand creates the key command.
func NewKeyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key <specs-file>",
		Short: "Print the freshness and store keys of each spec",
		Long: `Print, for each spec in the file, the freshness-tracker key and the
store key its data lives under. Useful for inspecting a SQLite store.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKey(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runKey(cmd *cobra.Command, opts *RootOptions, specsPath string) error {
	formatter := newFormatter(opts, cmd)

	specs, err := LoadSpecs(specsPath)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeSpecs, err)
	}
	cfg, err := LoadConfig(opts)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, err)
	}
	reg, err := LoadRegistry(cfg.TypesDir)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeTypes, err)
	}

	infos := make([]KeyInfo, 0, len(specs))
	for _, key := range specs.Keys() {
		info, err := specKeys(reg, key, specs[key])
		if err != nil {
			return formatter.fail(ExitFailure, ErrCodeKeyFailed, fmt.Errorf("%s: %w", key, err))
		}
		infos = append(infos, info)
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%s\n  freshness: %s\n  store:     %s\n", info.Key, info.Freshness, info.Store)
	}
	return nil
}

func specKeys(reg *registry.Registry, key string, s spec.Spec) (KeyInfo, error) {
	info := KeyInfo{Key: key}
	var err error
	if info.Freshness, err = freshness.Key(s); err != nil {
		return info, err
	}

	switch s.Kind {
	case spec.KindModel:
		t, err := reg.ModelConstructor(s.Name)
		if err != nil {
			return info, err
		}
		info.Store, err = store.ModelKey(s.Name, s.Params[t.Def.IDAttr()])
		if err != nil {
			return info, err
		}
	case spec.KindCollection:
		if _, err := reg.CollectionConstructor(s.Name); err != nil {
			return info, err
		}
		info.Store, err = store.CollectionKey(s.Name, s.Params)
		if err != nil {
			return info, err
		}
	}
	return info, nil
}
