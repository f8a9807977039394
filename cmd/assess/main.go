package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cardiopredict/web/internal/config"
	"github.com/cardiopredict/web/internal/domain"
	"github.com/cardiopredict/web/internal/service"
	"github.com/cardiopredict/web/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type assessFlags struct {
	backend string
	values  map[string]*string
	smoke   bool
	alco    bool
	active  bool
}

func newRootCmd() *cobra.Command {
	f := &assessFlags{values: make(map[string]*string)}

	cmd := &cobra.Command{
		Use:           "assess",
		Short:         "Run one cardiovascular risk assessment against the prediction service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssess(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.backend, "backend", "", "prediction service base URL (defaults to CARDIO_BACKEND_URL)")
	f.values[domain.FieldAge] = fs.String("age", "", "age in years")
	f.values[domain.FieldGender] = fs.String("gender", "", "1 female, 2 male")
	f.values[domain.FieldHeight] = fs.String("height", "", "height in cm")
	f.values[domain.FieldWeight] = fs.String("weight", "", "weight in kg")
	f.values[domain.FieldSystolicBP] = fs.String("ap-hi", "", "systolic blood pressure (mmHg)")
	f.values[domain.FieldDiastolicBP] = fs.String("ap-lo", "", "diastolic blood pressure (mmHg)")
	f.values[domain.FieldCholesterol] = fs.String("cholesterol", "", "1 normal, 2 above normal, 3 well above normal")
	f.values[domain.FieldGlucose] = fs.String("gluc", "", "1 normal, 2 above normal, 3 well above normal")
	fs.BoolVar(&f.smoke, "smoke", false, "current smoker")
	fs.BoolVar(&f.alco, "alco", false, "regular alcohol consumer")
	fs.BoolVar(&f.active, "active", false, "physically active")

	return cmd
}

func runAssess(ctx context.Context, out io.Writer, f *assessFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, true)

	backend := cfg.BackendURL
	if f.backend != "" {
		backend = f.backend
	}

	client := service.NewPredictionClient(backend, cfg.BackendHealthPath, cfg.RequestTimeout)
	ctrl := service.NewController(client, service.WithLogger(logger.New("assess")))
	for name, v := range f.values {
		ctrl.UpdateField(name, *v)
	}
	ctrl.UpdateField(domain.FieldSmoker, strconv.FormatBool(f.smoke))
	ctrl.UpdateField(domain.FieldAlcoholUse, strconv.FormatBool(f.alco))
	ctrl.UpdateField(domain.FieldActive, strconv.FormatBool(f.active))

	state, err := ctrl.Submit(ctx, ctrl.Input())
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Fields {
				fmt.Fprintf(out, "  %s %s\n", fe.Field, fe.Message)
			}
		}
		return err
	}

	return printState(out, state)
}

func printState(out io.Writer, state domain.LifecycleState) error {
	if state.Phase == domain.PhaseFailed {
		fmt.Fprintln(out, "Analysis failed:", state.Message)
		return errors.New(state.Message)
	}
	risk, ok := state.Risk()
	if !ok {
		return fmt.Errorf("assessment ended in state %s", state.Phase)
	}
	fmt.Fprintf(out, "Risk score: %.1f%%\n", risk.Score)
	fmt.Fprintf(out, "Risk tier:  %s\n", risk.Tier)
	if state.Result.Message != "" {
		fmt.Fprintf(out, "Backend:    %s\n", state.Result.Message)
	}
	return nil
}
