/* report.go
 * Contains financial report generation over the audit chains: volume,
 * per-type totals, unique actors and anomaly detection for a time window
 */

package audit

import (
	"fmt"
	"time"
)

// anomalyFactor flags entries whose amount exceeds this multiple of the
// running mean for their category
const anomalyFactor = 5.0

// minSamplesForAnomaly is how many amounts must be seen before the
// running mean is trusted for anomaly detection
const minSamplesForAnomaly = 3

// GenerateFinancialReport aggregates the financial category chains over
// [from, to). The integrity status always comes from a fresh verification
// of each chain; a report never assumes validity.
func (l *Logger) GenerateFinancialReport(from, to time.Time) (FinancialReport, error) {
	report := FinancialReport{
		From:            from,
		To:              to,
		TotalsByType:    make(map[string]float64),
		IntegrityStatus: "passed",
	}

	actors := make(map[string]struct{})

	for _, category := range FinancialCategories {
		chain, err := l.VerifyIntegrity(category)
		if err != nil {
			return FinancialReport{}, err
		}
		report.ChainReports = append(report.ChainReports, chain)
		if !chain.Passed {
			report.IntegrityStatus = "compromised"
		}

		entries, err := l.store.AuditEntriesBetween(category, from, to)
		if err != nil {
			return FinancialReport{}, fmt.Errorf("error loading %s entries for report: %w", category, err)
		}

		var runningSum float64
		var samples int

		for _, rec := range entries {
			report.EntryCount++
			if rec.Actor != "" {
				actors[rec.Actor] = struct{}{}
			}

			amount, ok := rec.Payload["amount"].(float64)
			if !ok {
				continue
			}

			report.TotalVolume += amount
			report.TotalsByType[category+":"+rec.Type] += amount

			if samples >= minSamplesForAnomaly && amount > anomalyFactor*(runningSum/float64(samples)) {
				report.Anomalies = append(report.Anomalies, Anomaly{
					EntryID:  rec.ID,
					Category: category,
					Amount:   amount,
					Reason:   "amount deviates sharply from running mean",
				})
			}
			if !chain.Passed && rec.Seq >= chain.BrokenSeq {
				report.Anomalies = append(report.Anomalies, Anomaly{
					EntryID:  rec.ID,
					Category: category,
					Amount:   amount,
					Reason:   "entry lies in a broken chain region",
				})
			}

			runningSum += amount
			samples++
		}
	}

	report.UniqueActors = len(actors)
	return report, nil
}
