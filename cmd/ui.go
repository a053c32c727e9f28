package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/copilot/internal/models"
)

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

func printReport(kind string, report models.IngestReport) {
	fmt.Println()
	color.Green("✓ Stored %d %s", report.Count, kind)
	if report.Failed == 0 {
		return
	}
	color.Yellow("! %d failed", report.Failed)
	for _, item := range report.Items {
		if item.Error != "" {
			color.Red("  %s: %s", item.ID, item.Error)
		}
	}
}

func printResponse(resp models.QueryResponse) {
	assistant := color.New(color.FgCyan).PrintfFunc()
	assistant("Assistant: ")
	fmt.Println(resp.Answer)

	c := resp.Classification
	color.HiBlack("[%s | %s | %s | %.2f | %s | %.0fms]",
		c.Topic, c.Sentiment, c.Priority, c.Confidence, resp.ResponseType, resp.ProcessingTimeMS)

	if len(resp.Citations) > 0 {
		color.Blue("Sources:")
		for _, cit := range resp.Citations {
			fmt.Printf("  - %s (%s)\n", cit.DocumentTitle, cit.SourceURL)
		}
	}

	if len(resp.FollowupSuggestions) > 0 {
		questions := make([]string, 0, len(resp.FollowupSuggestions))
		for _, f := range resp.FollowupSuggestions {
			questions = append(questions, "  ? "+f.Question)
		}
		color.Magenta("You might also ask:")
		fmt.Println(strings.Join(questions, "\n"))
	}
}
