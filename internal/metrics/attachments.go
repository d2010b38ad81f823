package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Attachments counts attachment events. It satisfies attachment.Observer.
type Attachments struct {
	slots         prometheus.Counter
	uploads       *prometheus.CounterVec
	uploadBytes   prometheus.Counter
	downloadBytes prometheus.Counter
	deletes       *prometheus.CounterVec
}

// NewAttachments registers attachment collectors on reg.
func NewAttachments(reg prometheus.Registerer) *Attachments {
	a := &Attachments{
		slots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_slots_total",
			Help:      "Delegated upload credentials issued.",
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxied_uploads_total",
			Help:      "Files written through the proxied upload path by result.",
		}, []string{"result"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes written through the proxied upload path.",
		}),
		downloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes streamed to clients by download and preview.",
		}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletes_total",
			Help:      "Delete requests by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(a.slots, a.uploads, a.uploadBytes, a.downloadBytes, a.deletes)
	return a
}

func (a *Attachments) UploadSlotIssued() { a.slots.Inc() }

func (a *Attachments) FileUploaded(bytes int64) {
	a.uploads.WithLabelValues("ok").Inc()
	a.uploadBytes.Add(float64(bytes))
}

func (a *Attachments) FileUploadFailed() { a.uploads.WithLabelValues("error").Inc() }

func (a *Attachments) BytesDownloaded(n int64) {
	if n > 0 {
		a.downloadBytes.Add(float64(n))
	}
}

func (a *Attachments) AttachmentDeleted(deleted bool) {
	outcome := "absent"
	if deleted {
		outcome = "deleted"
	}
	a.deletes.WithLabelValues(outcome).Inc()
}
