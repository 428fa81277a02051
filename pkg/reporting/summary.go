package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/picogrid/dart-simulations/pkg/dartsim"
)

// ResultsPrefix marks the machine-readable result lines
const ResultsPrefix = "out:"

// CSVHeader names the fields of the csv line written by WriteResults
const CSVHeader = "csv,targetsDetected,destroyed,whereDestroyed.x,missionSuccess,decisionTimeAvg,decisionTimeVar"

// WriteResults prints the out: lines and the csv line of a mission.
// Booleans are written as 0 or 1.
func WriteResults(w io.Writer, r dartsim.Results) error {
	if !r.Destroyed {
		if _, err := fmt.Fprintf(w, "Total targets detected: %d\n", r.TargetsDetected); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%sdestroyed=%d\n%stargetsDetected=%d\n%smissionSuccess=%d\n%s\n",
		ResultsPrefix, b2i(r.Destroyed),
		ResultsPrefix, r.TargetsDetected,
		ResultsPrefix, b2i(r.MissionSuccess),
		CSVLine(r))
	return err
}

// CSVLine formats the comma separated summary of r
func CSVLine(r dartsim.Results) string {
	return fmt.Sprintf("csv,%d,%d,%d,%d,%s,%s",
		r.TargetsDetected,
		b2i(r.Destroyed),
		r.WhereDestroyed.X,
		b2i(r.MissionSuccess),
		strconv.FormatFloat(r.DecisionTimeAvg, 'g', -1, 64),
		strconv.FormatFloat(r.DecisionTimeVar, 'g', -1, 64))
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
