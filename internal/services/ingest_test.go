package services

import (
	"context"
	"testing"
	"time"

	"github.com/mgsetel/vigilacore/internal/models"
)

func TestIngest_AcceptThenDuplicate(t *testing.T) {
	db := newTestDB(t)
	seedRegionRules(t, db)
	InitSystemLogger(db)
	defer InitSystemLogger(nil)
	svc := NewIngestService(db, nil)

	data := buildReadingReport(t, []map[int]string{
		readingRow("05510101", "1234567890", "REG-1", "Rua A, 10", "20/08/2026"),
		readingRow("05510502", "1234567891", "REG-2", "Rua B, 20", "21/08/2026"),
	})

	result, err := svc.Ingest(context.Background(), data, models.ReportTypeReading, "t1", "releitura.xlsx")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.Outcome != models.BatchOutcomeAccepted {
		t.Fatalf("Outcome = %q, expected accepted", result.Outcome)
	}
	if result.Accepted != 2 {
		t.Errorf("Accepted = %d, expected 2", result.Accepted)
	}

	var count int64
	db.Model(&models.ReadingRecord{}).Where("tenant_id = ?", "t1").Count(&count)
	if count != 2 {
		t.Errorf("persisted records = %d, expected 2", count)
	}

	// Region and reason derive from the locality code.
	var rec models.ReadingRecord
	db.Where("locality_code = ?", "05510101").First(&rec)
	if rec.Region != models.RegionAraxa {
		t.Errorf("Region = %q, expected %q", rec.Region, models.RegionAraxa)
	}
	if rec.DelayReason != "05" {
		t.Errorf("DelayReason = %q, expected 05", rec.DelayReason)
	}

	// The exact same bytes land as a no-op duplicate.
	result, err = svc.Ingest(context.Background(), data, models.ReportTypeReading, "t1", "releitura-reenviada.xlsx")
	if err != nil {
		t.Fatalf("Ingest() duplicate error = %v", err)
	}
	if result.Outcome != models.BatchOutcomeDuplicate {
		t.Fatalf("Outcome = %q, expected duplicate", result.Outcome)
	}

	db.Model(&models.ReadingRecord{}).Where("tenant_id = ?", "t1").Count(&count)
	if count != 2 {
		t.Errorf("duplicate must not add records, got %d", count)
	}
	db.Model(&models.UploadBatch{}).Where("tenant_id = ?", "t1").Count(&count)
	if count != 1 {
		t.Errorf("duplicate must not record a batch, got %d", count)
	}

	// The ignored attempt still leaves an audit trail for operators.
	db.Model(&models.SystemLog{}).Where("module = ? AND action = ?", "ingest", "duplicate").Count(&count)
	if count != 1 {
		t.Errorf("duplicate attempt log entries = %d, expected 1", count)
	}

	// Same bytes for another tenant are independent.
	result, err = svc.Ingest(context.Background(), data, models.ReportTypeReading, "t2", "releitura.xlsx")
	if err != nil {
		t.Fatalf("Ingest() other tenant error = %v", err)
	}
	if result.Outcome != models.BatchOutcomeAccepted {
		t.Errorf("other tenant outcome = %q, expected accepted", result.Outcome)
	}
}

func TestIngest_SchemaErrorPersistsNothing(t *testing.T) {
	db := newTestDB(t)
	svc := NewIngestService(db, nil)

	result, err := svc.Ingest(context.Background(), []byte("not a workbook"), models.ReportTypeReading, "t1", "ruim.xlsx")
	if err == nil {
		t.Fatal("expected schema error")
	}
	if result.Outcome != models.BatchOutcomeRejected {
		t.Errorf("Outcome = %q, expected rejected", result.Outcome)
	}

	var count int64
	db.Model(&models.UploadBatch{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected batch must persist nothing, got %d batches", count)
	}
	db.Model(&models.ReadingRecord{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected batch must persist nothing, got %d records", count)
	}
}

func TestIngest_CompletedNeverReopened(t *testing.T) {
	db := newTestDB(t)
	seedRegionRules(t, db)
	svc := NewIngestService(db, nil)

	first := buildReadingReport(t, []map[int]string{
		readingRow("05510101", "1234567890", "REG-1", "Rua A, 10", "20/08/2026"),
	})
	if _, err := svc.Ingest(context.Background(), first, models.ReportTypeReading, "t1", "dia1.xlsx"); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// Complete the order out of band.
	if err := db.Model(&models.ReadingRecord{}).
		Where("installation = ?", "1234567890").
		Update("status", models.ReadingStatusCompleted).Error; err != nil {
		t.Fatalf("complete record: %v", err)
	}

	// The installation reappears in the next day's report. The new
	// row must be stored already completed, not pending.
	second := buildReadingReport(t, []map[int]string{
		readingRow("05510101", "1234567890", "REG-1", "Rua A, 10", "22/08/2026"),
	})
	if _, err := svc.Ingest(context.Background(), second, models.ReportTypeReading, "t1", "dia2.xlsx"); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	var pending int64
	db.Model(&models.ReadingRecord{}).
		Where("installation = ? AND status = ?", "1234567890", models.ReadingStatusPending).
		Count(&pending)
	if pending != 0 {
		t.Errorf("completed installation reopened, %d pending rows", pending)
	}
}

func TestIngest_AbsentPendingsClosed(t *testing.T) {
	db := newTestDB(t)
	seedRegionRules(t, db)
	svc := NewIngestService(db, nil)

	first := buildReadingReport(t, []map[int]string{
		readingRow("05510101", "1234567890", "REG-1", "Rua A, 10", "20/08/2026"),
		readingRow("05510102", "1234567891", "REG-2", "Rua B, 20", "20/08/2026"),
	})
	if _, err := svc.Ingest(context.Background(), first, models.ReportTypeReading, "t1", "dia1.xlsx"); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// The next report only carries the first installation; the
	// second one dropped out, meaning it was resolved upstream.
	second := buildReadingReport(t, []map[int]string{
		readingRow("05510101", "1234567890", "REG-1", "Rua A, 10", "21/08/2026"),
	})
	if _, err := svc.Ingest(context.Background(), second, models.ReportTypeReading, "t1", "dia2.xlsx"); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	var rec models.ReadingRecord
	if err := db.Where("installation = ?", "1234567891").First(&rec).Error; err != nil {
		t.Fatalf("load dropped record: %v", err)
	}
	if rec.Status != models.ReadingStatusCompleted {
		t.Errorf("dropped pending status = %q, expected completed", rec.Status)
	}
	if rec.CompletedAt == nil {
		t.Error("dropped pending should carry a completion time")
	}
}

func TestIngest_Gateway(t *testing.T) {
	db := newTestDB(t)
	seedRegionRules(t, db)
	svc := NewIngestService(db, nil)

	data := buildWorkbook(t, []map[int]string{
		{0: "Relatório de Execução"},
		{0: "Conjunto de Contrato: 18510101 - CENTRO"},
		gatewayRow("OSB", "100", "8", "3", "1", "1", "0"),
		gatewayRow("CNV", "40", "2", "0", "0", "0", "0"),
		{0: "Total Geral", 3: "140"},
	})

	result, err := svc.Ingest(context.Background(), data, models.ReportTypeGateway, "t1", "porteira.xlsx")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.Outcome != models.BatchOutcomeAccepted {
		t.Fatalf("Outcome = %q, expected accepted", result.Outcome)
	}
	if result.Accepted != 2 {
		t.Errorf("Accepted = %d, expected 2", result.Accepted)
	}

	var rec models.GatewayRecord
	if err := db.Where("service_type = ?", models.ServiceTypeOSB).First(&rec).Error; err != nil {
		t.Fatalf("load gateway record: %v", err)
	}
	if rec.Region != models.RegionAraxa {
		t.Errorf("Region = %q, expected %q", rec.Region, models.RegionAraxa)
	}
	if rec.Planned != 100 || rec.NotExecuted != 8 {
		t.Errorf("counts = %d/%d, expected 100/8", rec.Planned, rec.NotExecuted)
	}
	if rec.Rereadings != 2 {
		t.Errorf("Rereadings = %d, expected 2", rec.Rereadings)
	}
}

func TestIngest_RecarriedPendingCountsOnce(t *testing.T) {
	db := newTestDB(t)
	seedRegionRules(t, db)
	svc := NewIngestService(db, nil)

	day1 := buildReadingReport(t, []map[int]string{
		readingRow("05510101", "1234567890", "REG-1", "Rua A, 10", "20/08/2026"),
		readingRow("05510102", "1234567891", "REG-2", "Rua B, 20", "20/08/2026"),
	})
	if _, err := svc.Ingest(context.Background(), day1, models.ReportTypeReading, "t1", "dia1.xlsx"); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// The next day's report carries the same two open orders.
	day2 := buildReadingReport(t, []map[int]string{
		readingRow("05510101", "1234567890", "REG-1", "Rua A, 10", "21/08/2026"),
		readingRow("05510102", "1234567891", "REG-2", "Rua B, 20", "21/08/2026"),
	})
	if _, err := svc.Ingest(context.Background(), day2, models.ReportTypeReading, "t1", "dia2.xlsx"); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	resp, err := NewMetricsService(db).GetMetrics(&MetricsRequest{TenantID: "t1"})
	if err != nil {
		t.Fatalf("GetMetrics() error = %v", err)
	}
	if resp.Reading.Pending != 2 {
		t.Errorf("Pending = %d, expected 2 open orders across both reports", resp.Reading.Pending)
	}
	if resp.Reading.Total != 2 {
		t.Errorf("Total = %d, expected 2", resp.Reading.Total)
	}

	rows, err := NewSnapshotService(db).Freeze("t1", time.Now())
	if err != nil {
		t.Fatalf("Freeze() error = %v", err)
	}
	pending := 0
	for _, row := range rows {
		pending += row.Pending
	}
	if pending != 2 {
		t.Errorf("snapshot pending = %d, expected 2", pending)
	}
}

func TestIngest_GatewayRestatementNotDoubleCounted(t *testing.T) {
	db := newTestDB(t)
	seedRegionRules(t, db)
	svc := NewIngestService(db, nil)
	snapshots := NewSnapshotService(db)

	first := buildWorkbook(t, []map[int]string{
		{0: "Conjunto de Contrato: 18510101 - CENTRO"},
		gatewayRow("OSB", "100", "8", "3", "1", "0", "0"),
	})
	if _, err := svc.Ingest(context.Background(), first, models.ReportTypeGateway, "t1", "dia1.xlsx"); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if err := snapshots.AccumulateFromGateway("t1", time.Now()); err != nil {
		t.Fatalf("first accumulate: %v", err)
	}

	// The next report restates the same planned volume with fewer
	// failures. Totals must not stack across the two uploads.
	second := buildWorkbook(t, []map[int]string{
		{0: "Conjunto de Contrato: 18510101 - CENTRO"},
		gatewayRow("OSB", "100", "6", "2", "1", "0", "0"),
	})
	if _, err := svc.Ingest(context.Background(), second, models.ReportTypeGateway, "t1", "dia2.xlsx"); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if err := snapshots.AccumulateFromGateway("t1", time.Now()); err != nil {
		t.Fatalf("second accumulate: %v", err)
	}

	resp, err := NewMetricsService(db).GetMetrics(&MetricsRequest{TenantID: "t1", ReportType: models.ReportTypeGateway})
	if err != nil {
		t.Fatalf("GetMetrics() error = %v", err)
	}
	if resp.Gateway.Planned != 100 {
		t.Errorf("Planned = %d, expected 100 from the latest report only", resp.Gateway.Planned)
	}
	if resp.Gateway.NotExecuted != 6 {
		t.Errorf("NotExecuted = %d, expected 6 from the latest report only", resp.Gateway.NotExecuted)
	}

	month := time.Now().Format("2006-01")
	rows, err := snapshots.GetMonthlyAccumulation("t1", month)
	if err != nil {
		t.Fatalf("GetMonthlyAccumulation() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("accumulation rows = %d, expected 1", len(rows))
	}
	if rows[0].PlannedOSB != 100 {
		t.Errorf("PlannedOSB = %d, expected 100", rows[0].PlannedOSB)
	}
	// The month keeps its high-water mark even after the restatement.
	if rows[0].NotExecutedOSB != 8 {
		t.Errorf("NotExecutedOSB = %d, expected 8", rows[0].NotExecutedOSB)
	}
}

func TestIngest_Validation(t *testing.T) {
	db := newTestDB(t)
	svc := NewIngestService(db, nil)

	if _, err := svc.Ingest(context.Background(), []byte{}, "pdf", "t1", "x.pdf"); err == nil {
		t.Error("unknown report type should error")
	}
	if _, err := svc.Ingest(context.Background(), []byte{}, models.ReportTypeReading, "", "x.xlsx"); err == nil {
		t.Error("missing tenant should error")
	}
}
