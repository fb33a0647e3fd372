/* verify.go
 * Contains the chain integrity verification scan. The scan is idempotent
 * and side-effect free so it can run on a schedule or on demand while
 * appends continue on other chains.
 */

package audit

import (
	"fmt"

	"settlement-core/core/signer"
)

// VerifyIntegrity replays a category's retained entries in insertion
// order, recomputing each entry's expected signature and confirming the
// previous-hash link at every step. The first retained entry's previous
// hash is accepted as-is: retention pruning removes a clean prefix and is
// not tampering. A mismatch anywhere marks the chain broken from that
// position forward.
func (l *Logger) VerifyIntegrity(category string) (ChainReport, error) {
	entries, err := l.store.AuditEntries(category)
	if err != nil {
		return ChainReport{}, fmt.Errorf("error loading %s entries for verification: %w", category, err)
	}

	report := ChainReport{
		Category: category,
		Passed:   true,
		Checked:  len(entries),
		BrokenAt: -1,
	}

	// Verification scans the snapshot length fetched above; entries
	// appended mid-scan are covered by the next run.
	for i, rec := range entries {
		ok, err := l.signer.Verify(signableFromRecord(rec), rec.Signature)
		if err != nil {
			return ChainReport{}, fmt.Errorf("error recomputing signature for %s entry %d: %w", category, i, err)
		}
		if !ok {
			report.Passed = false
			report.BrokenAt = i
			report.BrokenSeq = rec.Seq
			report.Reason = fmt.Sprintf("signature mismatch on entry %s", rec.ID)
			return report, nil
		}

		if i == 0 {
			continue
		}
		expectedPrev := signer.ChainHash(entries[i-1].Signature, entries[i-1].PrevHash)
		if rec.PrevHash != expectedPrev {
			report.Passed = false
			report.BrokenAt = i
			report.BrokenSeq = rec.Seq
			report.Reason = fmt.Sprintf("previous-hash link broken at entry %s", rec.ID)
			return report, nil
		}
	}

	return report, nil
}

// VerifyAll runs the integrity scan over every known category
func (l *Logger) VerifyAll() ([]ChainReport, error) {
	categories, err := l.store.Categories()
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}

	reports := make([]ChainReport, 0, len(categories))
	for _, category := range categories {
		report, err := l.VerifyIntegrity(category)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
