package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var errNoResponse = errors.New("no response from api")

func newRequestCmd(rt *runtime) *cobra.Command {
	var (
		method string
		data   string
		params []string
		jqExpr string
	)

	cmd := &cobra.Command{
		Use:   "request <path>",
		Short: "Send one raw request, e.g. request subscriptions/1",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readData(data, cmd.Flags().Changed("data"))
			if err != nil {
				return err
			}
			qp, err := parsePairs(params)
			if err != nil {
				return err
			}

			res, err := rt.client().Request(cmd.Context(), args[0], method, body, qp)
			if err != nil {
				return err
			}
			if res.NoResponse() {
				fmt.Fprintf(cmd.ErrOrStderr(), "no response: %v\n", res.Err)
				return errNoResponse
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "HTTP %d\n", res.StatusCode())
			if expr := strings.TrimSpace(jqExpr); expr != "" {
				return writeQuery(cmd.OutOrStdout(), res.Body(), expr)
			}
			_, err = cmd.OutOrStdout().Write(res.Body())
			return err
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method: GET, POST, PUT or DELETE")
	cmd.Flags().StringVarP(&data, "data", "d", "", "raw request body, or @file to read it from a file")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&jqExpr, "query", "q", "", "jq expression applied to a JSON response body")
	return cmd
}

// readData returns nil when the flag was not given so POST/PUT can be rejected.
func readData(data string, set bool) ([]byte, error) {
	if !set {
		return nil, nil
	}
	if path, ok := strings.CutPrefix(data, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
		return b, nil
	}
	return []byte(data), nil
}

func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid pair %q (want key=value)", p)
		}
		out[k] = v
	}
	return out, nil
}
