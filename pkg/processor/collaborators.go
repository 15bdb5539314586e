package processor

import (
	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/external"
	"github.com/accesslint/platform/pkg/jobqueue"
)

// Collaborators bundles every external dependency a processor may call.
// Not every processor uses every field; scan-page uses Browser, for
// example, while send-email uses Email.
type Collaborators struct {
	Conn    *db.DatabaseConnection
	Browser external.HeadlessBrowser
	Email   external.EmailSender
	Store   external.ObjectStore
	Infer   external.InferenceInvoker
	Queue   jobqueue.JobQueue
}
