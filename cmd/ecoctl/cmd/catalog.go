package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ecoh2o/portal/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the published product and plan rates",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Eau potable :")
		for _, p := range catalog.Products() {
			fmt.Printf("  %-24s %8d FCFA\n", p.Name, p.Price)
		}
		fmt.Println("Collecte des déchets :")
		for _, p := range catalog.Plans() {
			fmt.Printf("  %-24s %8d FCFA%s\n", p.Name, p.Price, p.Frequency)
		}
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
