package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diatrack-dev/diatrack/internal/cli/client"
)

// NewPredictCmd creates the predict command
func NewPredictCmd() *cobra.Command {
	var req client.PredictRequest

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Submit clinical measurements for a diabetes risk assessment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(req)
		},
	}

	cmd.Flags().IntVar(&req.Pregnancies, "pregnancies", 0, "Number of pregnancies")
	cmd.Flags().Float64Var(&req.Glucose, "glucose", 0, "Plasma glucose concentration (mg/dL)")
	cmd.Flags().Float64Var(&req.BloodPressure, "blood-pressure", 0, "Diastolic blood pressure (mm Hg)")
	cmd.Flags().Float64Var(&req.SkinThickness, "skin-thickness", 0, "Triceps skin fold thickness (mm)")
	cmd.Flags().Float64Var(&req.Insulin, "insulin", 0, "Serum insulin (mu U/ml)")
	cmd.Flags().Float64Var(&req.BMI, "bmi", 0, "Body mass index")
	cmd.Flags().Float64Var(&req.Pedigree, "pedigree", 0, "Diabetes pedigree function")
	cmd.Flags().IntVar(&req.Age, "age", 0, "Age in years")

	cmd.MarkFlagRequired("glucose")
	cmd.MarkFlagRequired("bmi")
	cmd.MarkFlagRequired("age")

	return cmd
}

func runPredict(req client.PredictRequest) error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	apiClient, err := newAuthenticatedClient(server)
	if err != nil {
		return err
	}

	prediction, err := apiClient.Predict(req)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	fmt.Printf("Risk assessment complete:\n\n")
	fmt.Printf("  Probability: %.1f%%\n", prediction.Probability*100)
	fmt.Printf("  Risk level:  %s\n", prediction.RiskLevel)
	fmt.Printf("  Model:       %s\n", prediction.ModelName)
	return nil
}

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List your past risk assessments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory()
		},
	}
}

func runHistory() error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	apiClient, err := newAuthenticatedClient(server)
	if err != nil {
		return err
	}

	predictions, err := fetch("prediction history", apiClient.ListPredictions)
	if err != nil {
		return err
	}

	if len(predictions) == 0 {
		fmt.Println("No predictions yet.")
		fmt.Println("\nRun an assessment with: diatrack predict")
		return nil
	}

	fmt.Printf("Predictions on %s (%s):\n\n", server.Alias, server.Origin)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tPROBABILITY\tRISK LEVEL\tMODEL")
	fmt.Fprintln(w, "────\t───────────\t──────────\t─────")

	for _, p := range predictions {
		fmt.Fprintf(w, "%s\t%.1f%%\t%s\t%s\n",
			p.CreatedAt,
			p.Probability*100,
			p.RiskLevel,
			p.ModelName,
		)
	}

	w.Flush()
	return nil
}
