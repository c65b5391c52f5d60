package output

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/vvaria04/Traffic-light-Management/internal/advisory"
	"github.com/vvaria04/Traffic-light-Management/internal/history"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

var dayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// HourPlan pairs the predicted demand of one hour with its advisory split.
type HourPlan struct {
	Prediction history.Prediction
	Split      advisory.Split
}

type Plan struct {
	DayOfWeek int
	Cycle     time.Duration
	Hours     []HourPlan
	Stats     history.Stats
	Generated time.Time
}

// BuildPlan derives a split for every predicted hour. Hours without
// demand keep the split of the hour before, starting from an even split.
func BuildPlan(dayOfWeek int, predictions []history.Prediction, cycle time.Duration, stats history.Stats) Plan {
	plan := Plan{
		DayOfWeek: dayOfWeek,
		Cycle:     cycle,
		Stats:     stats,
		Generated: time.Now(),
	}

	split := advisory.EvenSplit(cycle)
	for _, pred := range predictions {
		split = advisory.SplitFor(pred.Demand, cycle, split)
		plan.Hours = append(plan.Hours, HourPlan{Prediction: pred, Split: split})
	}
	return plan
}

type Generator struct {
	outputDir string
}

func NewGenerator(outputDir string) *Generator {
	return &Generator{
		outputDir: outputDir,
	}
}

// Generate writes the plan to <outputDir>/timing-plan-<day>.md.
func (g *Generator) Generate(plan Plan) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	filename := filepath.Join(g.outputDir, fmt.Sprintf("timing-plan-%s.md", sanitizeFilename(dayName(plan.DayOfWeek))))
	if err := os.WriteFile(filename, []byte(Render(plan)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return filename, nil
}

// Render formats the plan as markdown.
func Render(plan Plan) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Timing Plan: %s\n\n", capitalize(dayName(plan.DayOfWeek))))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", plan.Generated.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("**Cycle:** %s\n", plan.Cycle))
	sb.WriteString(fmt.Sprintf("**Samples:** %d", plan.Stats.Count))
	if plan.Stats.Count > 0 {
		sb.WriteString(fmt.Sprintf(" (%s to %s, %d days)",
			plan.Stats.First.Format("2006-01-02"),
			plan.Stats.Last.Format("2006-01-02"),
			plan.Stats.Days))
	}
	sb.WriteString("\n\n")
	sb.WriteString("Splits are advisory. The signal itself is driven by live demand.\n\n")

	sb.WriteString("## Hourly Plan\n\n")
	sb.WriteString("| Hour |")
	for _, d := range phase.Directions {
		sb.WriteString(fmt.Sprintf(" %s |", capitalize(d.String())))
	}
	sb.WriteString(" N-S green | E-W green | Basis |\n")
	sb.WriteString("|---|---|---|---|---|---|---|---|\n")

	var missing int
	for _, h := range plan.Hours {
		pred := h.Prediction
		sb.WriteString(fmt.Sprintf("| %02d:00 |", pred.Hour))
		for _, d := range phase.Directions {
			if pred.Found {
				sb.WriteString(fmt.Sprintf(" %d |", pred.Demand.Of(d)))
			} else {
				sb.WriteString(" - |")
			}
		}
		sb.WriteString(fmt.Sprintf(" %s | %s | %s |\n", h.Split.NorthSouth, h.Split.EastWest, basis(pred)))
		if !pred.Found {
			missing++
		}
	}

	if missing > 0 {
		sb.WriteString(fmt.Sprintf("\n%d of %d hours have no history and keep the previous split.\n", missing, len(plan.Hours)))
	}
	return sb.String()
}

func basis(pred history.Prediction) string {
	switch {
	case !pred.Found:
		return "no data"
	case pred.Fallback:
		return fmt.Sprintf("any day, %d samples", pred.Samples)
	default:
		return fmt.Sprintf("%d samples", pred.Samples)
	}
}

func dayName(dayOfWeek int) string {
	if dayOfWeek < 0 || dayOfWeek >= len(dayNames) {
		return "unknown"
	}
	return dayNames[dayOfWeek]
}

func sanitizeFilename(s string) string {
	reg := regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	result := reg.ReplaceAllString(s, "-")
	result = strings.Trim(result, "-")
	if len(result) > 50 {
		result = result[:50]
	}
	if result == "" {
		result = "unnamed"
	}
	return strings.ToLower(result)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
