package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/verdantlabs/verdant/internal/app"
	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/facade"
	"github.com/verdantlabs/verdant/internal/utils"
)

// AssessmentCommand returns the CLI command for working with assessments
func AssessmentCommand() *cli.Command {
	return &cli.Command{
		Name:    "assessment",
		Aliases: []string{"a"},
		Usage:   "Manage sustainability assessments",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List assessments",
				Action: listAssessmentsAction,
			},
			{
				Name:  "start",
				Usage: "Start a new assessment draft",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "org",
						Usage:    "Organization the assessment belongs to",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "template",
						Usage: "Assessment template identifier",
					},
					&cli.StringFlag{
						Name:  "language",
						Usage: "Assessment language",
						Value: "en",
					},
				},
				Action: startAssessmentAction,
			},
			{
				Name:  "answer",
				Usage: "Record an answer in the active draft",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "assessment",
						Usage:    "Assessment identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "question",
						Usage:    "Question revision identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "value",
						Usage:    "Answer value as JSON",
						Required: true,
					},
				},
				Action: answerAction,
			},
			{
				Name:      "submit",
				Usage:     "Submit an assessment draft for review",
				ArgsUsage: "<assessment-id>",
				Action:    submitAssessmentAction,
			},
		},
	}
}

func listAssessmentsAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	query := application.Facades.Assessments.List(c.Context)
	if err := query.Err(); err != nil {
		return fmt.Errorf("listing assessments: %w", err)
	}

	assessments := query.Data()
	if len(assessments) == 0 {
		utils.PrintInfo("No assessments found")
		return nil
	}

	headers := []string{"ID", "Organization", "Status", "Created"}
	rows := [][]string{}
	for _, a := range assessments {
		rows = append(rows, []string{
			utils.Truncate(a.ID, 28),
			a.OrganizationName,
			string(a.Status),
			utils.FormatTime(a.CreatedAt),
		})
	}

	opts := utils.DefaultTableOptions()
	opts.Title = "Assessments"
	utils.PrintTable(headers, rows, opts)
	return nil
}

func startAssessmentAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	draft := &entity.Assessment{
		OrganizationID: c.String("org"),
		TemplateID:     c.String("template"),
		Language:       c.String("language"),
	}

	var actionErr error
	application.Facades.Assessments.Create(c.Context, draft, facade.Callbacks[*entity.Assessment]{
		OnSuccess: func(a *entity.Assessment) {
			utils.PrintSuccess("Started assessment " + a.ID)
		},
		OnError: func(err error) {
			actionErr = fmt.Errorf("starting assessment: %w", err)
		},
	})
	return actionErr
}

func answerAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	value := c.String("value")
	if !json.Valid([]byte(value)) {
		// Bare literals are accepted as strings for convenience
		value = strconv.Quote(value)
	}

	resp := &entity.Response{
		AssessmentID:       c.String("assessment"),
		QuestionRevisionID: c.String("question"),
		Answer:             json.RawMessage(value),
	}

	var actionErr error
	application.Facades.Responses.Save(c.Context, resp, facade.Callbacks[*entity.Response]{
		OnSuccess: func(r *entity.Response) {
			utils.PrintSuccess("Recorded answer " + r.ID)
		},
		OnError: func(err error) {
			actionErr = fmt.Errorf("recording answer: %w", err)
		},
	})
	return actionErr
}

func submitAssessmentAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("assessment id is required")
	}

	var actionErr error
	application.Facades.Assessments.Submit(c.Context, id, facade.Callbacks[*entity.Submission]{
		OnSuccess: func(s *entity.Submission) {
			utils.PrintSuccess(fmt.Sprintf("Submitted assessment with %d answer(s) as %s", len(s.Responses), s.ID))
		},
		OnError: func(err error) {
			actionErr = fmt.Errorf("submitting assessment: %w", err)
		},
	})
	return actionErr
}
