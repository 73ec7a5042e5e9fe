package main

import (
	"fmt"

	"github.com/deppfellow/iban-manager/internal/lib/iban"
	"github.com/deppfellow/iban-manager/internal/lib/utils"
	"github.com/spf13/cobra"
)

type validateOutput struct {
	Input string `json:"input"`
	iban.Result
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <iban>...",
		Short: "Check IBANs and print the result as JSON",
		Long:  "Check IBANs and print the result as JSON. Exits with status 1 when any of them is invalid.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]validateOutput, 0, len(args))
			invalid := 0
			for _, arg := range args {
				res := iban.Check(arg)
				if !res.IsValid {
					invalid++
				}
				results = append(results, validateOutput{Input: arg, Result: res})
			}

			if err := utils.PrintJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d IBANs are invalid", invalid, len(args))
			}
			return nil
		},
	}
}
