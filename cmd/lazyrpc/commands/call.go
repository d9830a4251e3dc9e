package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var callTimeout time.Duration

var callCmd = &cobra.Command{
	Use:   "call <method> [params...]",
	Short: "Perform a single JSON-RPC call",
	Long: `Performs one JSON-RPC call against the configured endpoint. The
connection is dialed lazily by the proxy when the call is made. Params
are parsed as JSON where possible and passed as strings otherwise.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proxy, err := newProxy()
		if err != nil {
			return err
		}

		method := args[0]
		params := parseParams(args[1:])

		ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
		defer cancel()

		result, err := proxy.Send(ctx, method, params...)
		if err != nil {
			return fmt.Errorf("call %s: %w", method, err)
		}

		printResult(method, result)
		return nil
	},
}

func init() {
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 30*time.Second, "Call timeout")
}

// parseParams decodes each argument as JSON, falling back to the raw
// string so callers can write both '["0xabc","latest"]'-style values and
// bare addresses.
func parseParams(args []string) []any {
	params := make([]any, 0, len(args))
	for _, arg := range args {
		var v any
		if err := json.Unmarshal([]byte(arg), &v); err != nil {
			params = append(params, arg)
			continue
		}
		params = append(params, v)
	}
	return params
}

func printResult(method string, result json.RawMessage) {
	methodColor := color.New(color.FgCyan, color.Bold)
	methodColor.Printf("%s ", method)

	parsed := gjson.ParseBytes(result)
	if parsed.Type == gjson.String {
		fmt.Println(parsed.String())
		return
	}
	fmt.Println(parsed.Raw)
}
