package processor

import "github.com/accesslint/platform/db"

func init() {
	DefaultRegistry.Register(db.QueueScanPage, ScanPage)
	DefaultRegistry.Register(db.QueueGenerateReport, GenerateReport)
	DefaultRegistry.Register(db.QueueSendEmail, SendEmail)
	DefaultRegistry.Register(db.QueueBatchReport, BatchReport)
	DefaultRegistry.Register(db.QueueAIBatch, AIBatch)
}
