// -- cmd/scenarios.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Scenario is a canned URL/task pair for quick smoke runs.
type Scenario struct {
	Name string
	URL  string
	Task string
}

// scenarios are ready-made test targets, addressable by number via
// `webpilot run --scenario N`.
var scenarios = []Scenario{
	{
		Name: "E-commerce Demo",
		URL:  "https://demo.opencart.com/",
		Task: "Search for 'iPhone', add a product to cart, and proceed to checkout. Test the complete shopping flow.",
	},
	{
		Name: "Form Testing",
		URL:  "https://demoqa.com/text-box",
		Task: "Fill out all form fields with sample data and submit the form. Verify the output is displayed correctly.",
	},
	{
		Name: "Login Testing",
		URL:  "https://the-internet.herokuapp.com/login",
		Task: "Test login functionality. Try with invalid credentials first, then use valid credentials (username: tomsmith, password: SuperSecretPassword!)",
	},
	{
		Name: "Interactive Elements",
		URL:  "https://demoqa.com/buttons",
		Task: "Test all button interactions - single click, double click, and right click buttons. Verify all interactions work properly.",
	},
	{
		Name: "Job Portal Search",
		URL:  "https://www.naukri.com/",
		Task: "Search for 'Python Developer' jobs in 'Bangalore'. Apply location and experience filters if available.",
	},
	{
		Name: "Real Estate Search",
		URL:  "https://www.99acres.com/",
		Task: "Search for residential properties in Mumbai. Try to apply filters for 2BHK apartments.",
	},
	{
		Name: "Travel Booking",
		URL:  "https://www.makemytrip.com/",
		Task: "Search for flights from Delhi to Mumbai for next week. Analyze the search results and filters.",
	},
	{
		Name: "Online Banking Demo",
		URL:  "https://demo.testfire.net/",
		Task: "Navigate through the banking demo site. Try to login and explore different sections.",
	},
	{
		Name: "Government Services",
		URL:  "https://www.digitalindia.gov.in/",
		Task: "Navigate through various government services. Check accessibility and user experience.",
	},
	{
		Name: "Educational Platform",
		URL:  "https://www.edx.org/",
		Task: "Search for 'Python' courses. Browse course details and check enrollment process.",
	},
}

// scenarioByNumber returns the 1-based scenario, or an error for an invalid
// number.
func scenarioByNumber(n int) (Scenario, error) {
	if n < 1 || n > len(scenarios) {
		return Scenario{}, fmt.Errorf("invalid scenario number %d (valid range 1-%d)", n, len(scenarios))
	}
	return scenarios[n-1], nil
}

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "Lists the built-in test scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, s := range scenarios {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n    URL:  %s\n    Task: %s\n\n", i+1, s.Name, s.URL, s.Task)
			}
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newScenariosCmd())
}
