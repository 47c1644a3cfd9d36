package main

import (
	"fmt"
	"html"
	"net/url"

	"github.com/spf13/cobra"
)

func newDirectCmd(rt *runtime) *cobra.Command {
	var (
		redirect   string
		fields     []string
		cardUpdate string
	)

	cmd := &cobra.Command{
		Use:   "direct",
		Short: "Print a signed Chargify Direct form action and hidden fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pairs, err := parsePairs(fields)
			if err != nil {
				return err
			}
			data := url.Values{}
			for k, v := range pairs {
				data.Set(k, v)
			}

			if redirect == "" {
				redirect = rt.cfg.DirectRedirectURL
			}
			d := rt.client().Direct().SetRedirect(redirect).SetData(data)

			action := d.SignupAction()
			if cardUpdate != "" {
				action = d.CardUpdateAction(cardUpdate)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "<form method=\"post\" action=\"%s\">\n", html.EscapeString(action))
			fmt.Fprint(out, d.HiddenFields())
			fmt.Fprintln(out, "</form>")
			return nil
		},
	}

	cmd.Flags().StringVar(&redirect, "redirect", "", "redirect URL (defaults to direct_redirect_url)")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "signed data field as key=value, e.g. signup[product][handle]=basic")
	cmd.Flags().StringVar(&cardUpdate, "card-update", "", "build a card update form for this subscription id")
	return cmd
}
