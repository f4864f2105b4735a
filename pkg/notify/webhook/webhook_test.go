package webhook_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/allie-chat/allieproxy/pkg/notify"
	"github.com/allie-chat/allieproxy/pkg/notify/webhook"
)

var _ = Describe("Notifier", func() {
	var (
		report *notify.Report
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		report = notify.NewReport(
			errors.New("upstream returned 500 Internal Server Error"),
			time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		)
	})

	It("requires a url", func() {
		_, err := webhook.New("  ", nil)
		Expect(err).To(HaveOccurred())
	})

	It("posts exactly timestamp and error as JSON", func() {
		var (
			method      string
			contentType string
			body        map[string]any
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			contentType = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusOK)
		}))
		DeferCleanup(srv.Close)

		n, err := webhook.New(srv.URL, srv.Client())
		Expect(err).NotTo(HaveOccurred())
		Expect(n.Name()).To(Equal("webhook"))

		Expect(n.Notify(ctx, report)).To(Succeed())
		Expect(method).To(Equal(http.MethodPost))
		Expect(contentType).To(Equal("application/json"))
		Expect(body).To(Equal(map[string]any{
			"timestamp": "2025-01-02T03:04:05.000Z",
			"error":     "upstream returned 500 Internal Server Error",
		}))
	})

	It("fails on an error status", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		DeferCleanup(srv.Close)

		n, err := webhook.New(srv.URL, srv.Client())
		Expect(err).NotTo(HaveOccurred())
		Expect(n.Notify(ctx, report)).To(MatchError(ContainSubstring("403")))
	})

	It("fails when the endpoint is unreachable", func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		n, err := webhook.New(srv.URL, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(n.Notify(ctx, report)).NotTo(Succeed())
	})

	It("stops waiting when the context expires", func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			<-release
		}))
		DeferCleanup(srv.Close)
		DeferCleanup(func() { close(release) })

		n, err := webhook.New(srv.URL, srv.Client())
		Expect(err).NotTo(HaveOccurred())

		tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		Expect(n.Notify(tctx, report)).To(MatchError(context.DeadlineExceeded))
	})

	It("rejects a nil report", func() {
		n, err := webhook.New("http://127.0.0.1:1", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(n.Notify(ctx, nil)).To(MatchError(notify.ErrNilReport))
	})
})
