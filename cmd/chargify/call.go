package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samvad-hq/chargify-go/pkg/chargify"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// callView is the printable form of a call record.
type callView struct {
	chargify.CallRecord `yaml:",inline"`
	StatusCode          string               `json:"status_code" yaml:"status_code"`
	ResultCode          string               `json:"result_code" yaml:"result_code"`
	Errors              []chargify.CallError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newCallCmd(rt *runtime) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "call <call_id>",
		Short: "Show the call record behind a Chargify Direct submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			call := rt.client().Call()
			res, err := call.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rec, err := call.Decode(res)
			if err != nil {
				return err
			}

			view := callView{
				CallRecord: *rec,
				StatusCode: rec.StatusCode(),
				ResultCode: rec.ResultCode(),
				Errors:     rec.Errors(),
			}
			out := cmd.OutOrStdout()
			switch strings.ToLower(output) {
			case "yaml", "yml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(view); err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}
				return enc.Close()
			case "json", "":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			default:
				return fmt.Errorf("unsupported output %q (want json or yaml)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}
