package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/allie-chat/allieproxy/pkg/llm"
	"github.com/allie-chat/allieproxy/pkg/llm/openai"
	"github.com/allie-chat/allieproxy/pkg/logger"
	"github.com/allie-chat/allieproxy/pkg/notify"
	"github.com/allie-chat/allieproxy/pkg/notify/webhook"
	testutils "github.com/allie-chat/allieproxy/pkg/utils/test"
)

const genericError = `{"error":"Internal Server Error"}`

// upstreamCall is what the fake provider saw.
type upstreamCall struct {
	Authorization string
	Model         string          `json:"model"`
	Messages      json.RawMessage `json:"messages"`
}

// panicCompleter blows up inside the handler.
type panicCompleter struct{}

func (panicCompleter) Complete(context.Context, json.RawMessage) (*openai.Completion, error) {
	panic("completer exploded")
}

var _ = Describe("Proxy", func() {
	var (
		upstream    *httptest.Server
		respond     http.HandlerFunc
		calls       []upstreamCall
		callsMu     sync.Mutex
		callCount   atomic.Int32
		emailSink   *testutils.MockNotifier
		webhookSink *testutils.MockNotifier
	)

	BeforeEach(func() {
		calls = nil
		callCount.Store(0)
		emailSink = testutils.NewMockNotifier("email")
		webhookSink = testutils.NewMockNotifier("webhook")
		respond = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Request-Id", "req_123")
			io.WriteString(w, `{"reply":"hello"}`)
		}

		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callCount.Add(1)
			var call upstreamCall
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &call)
			call.Authorization = r.Header.Get("Authorization")
			callsMu.Lock()
			calls = append(calls, call)
			callsMu.Unlock()
			respond(w, r)
		}))
		DeferCleanup(upstream.Close)
	})

	recorded := func() []upstreamCall {
		callsMu.Lock()
		defer callsMu.Unlock()
		return append([]upstreamCall(nil), calls...)
	}

	newRelay := func(limits llm.Limits, notifiers ...notify.Notifier) *Proxy {
		client, err := openai.NewClient(openai.Config{
			BaseURL: upstream.URL,
			APIKey:  "sk-test",
			Model:   "gpt-4o-mini",
			Timeout: 2 * time.Second,
		})
		Expect(err).NotTo(HaveOccurred())

		p, err := New(Config{ListenAddr: ":0", Limits: limits}, client, notifiers, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	// do runs req through the app and returns status and body.
	do := func(p *Proxy, req *http.Request) (int, string, http.Header) {
		resp, err := p.server.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, string(body), resp.Header
	}

	chat := func(p *Proxy, body string) (int, string, http.Header) {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return do(p, req)
	}

	Describe("New", func() {
		It("requires an upstream", func() {
			_, err := New(Config{}, nil, nil, logger.Nop())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("POST /chat", func() {
		It("returns the upstream reply verbatim", func() {
			p := newRelay(llm.Limits{}, emailSink, webhookSink)

			status, body, headers := chat(p, `{"messages":[{"role":"user","content":"hi"}]}`)
			p.Close()

			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(Equal(`{"reply":"hello"}`))
			Expect(headers.Get("Content-Type")).To(Equal("application/json"))
			Expect(headers.Get("X-Upstream-Request-Id")).To(Equal("req_123"))

			Expect(recorded()).To(HaveLen(1))
			Expect(recorded()[0].Authorization).To(Equal("Bearer sk-test"))
			Expect(recorded()[0].Model).To(Equal("gpt-4o-mini"))
			Expect(recorded()[0].Messages).To(MatchJSON(`[{"role":"user","content":"hi"}]`))

			Expect(emailSink.Attempts()).To(BeZero())
			Expect(webhookSink.Attempts()).To(BeZero())
		})

		It("forwards an empty conversation", func() {
			respond = func(w http.ResponseWriter, _ *http.Request) {
				io.WriteString(w, `{"choices":[]}`)
			}
			p := newRelay(llm.Limits{MaxMessages: 5, StrictRoles: true}, emailSink)

			status, body, _ := chat(p, `{"messages":[]}`)
			p.Close()

			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(Equal(`{"choices":[]}`))
			Expect(recorded()).To(HaveLen(1))
			Expect(recorded()[0].Messages).To(MatchJSON(`[]`))
		})

		It("forwards unknown message fields unchanged", func() {
			p := newRelay(llm.Limits{}, emailSink)

			status, _, _ := chat(p, `{"messages":[{"role":"user","content":"hi","name":"visitor"}]}`)
			p.Close()

			Expect(status).To(Equal(http.StatusOK))
			Expect(recorded()[0].Messages).To(MatchJSON(`[{"role":"user","content":"hi","name":"visitor"}]`))
		})

		It("reports an upstream 401 to every sink and hides the detail", func() {
			respond = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				io.WriteString(w, `{"error":{"message":"Incorrect API key provided"}}`)
			}
			p := newRelay(llm.Limits{}, emailSink, webhookSink)

			status, body, _ := chat(p, `{"messages":[{"role":"user","content":"hi"}]}`)
			p.Close()

			Expect(status).To(Equal(http.StatusInternalServerError))
			Expect(body).To(Equal(genericError))
			Expect(body).NotTo(ContainSubstring("API key"))

			Expect(emailSink.Attempts()).To(Equal(1))
			Expect(webhookSink.Attempts()).To(Equal(1))
			report := emailSink.Reports()[0]
			Expect(report.Message).To(ContainSubstring("401"))
			Expect(webhookSink.Reports()[0].ID).To(Equal(report.ID))
		})

		It("skips the webhook when none is configured", func() {
			respond = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}
			p := newRelay(llm.Limits{}, emailSink)

			status, body, _ := chat(p, `{"messages":[{"role":"user","content":"hi"}]}`)
			p.Close()

			Expect(status).To(Equal(http.StatusInternalServerError))
			Expect(body).To(Equal(genericError))
			Expect(emailSink.Attempts()).To(Equal(1))
		})

		It("still emails when the webhook fails", func() {
			respond = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}
			webhookSink.Fail = true
			p := newRelay(llm.Limits{}, webhookSink, emailSink)

			status, body, _ := chat(p, `{"messages":[{"role":"user","content":"hi"}]}`)
			p.Close()

			Expect(status).To(Equal(http.StatusInternalServerError))
			Expect(body).To(Equal(genericError))
			Expect(webhookSink.Attempts()).To(Equal(1))
			Expect(emailSink.Attempts()).To(Equal(1))
		})

		It("answers 500 when every sink fails", func() {
			respond = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}
			webhookSink.Fail = true
			emailSink.Panic = true
			p := newRelay(llm.Limits{}, webhookSink, emailSink)

			status, body, _ := chat(p, `{"messages":[{"role":"user","content":"hi"}]}`)
			p.Close()

			Expect(status).To(Equal(http.StatusInternalServerError))
			Expect(body).To(Equal(genericError))
		})

		It("treats a non-JSON upstream body as a failure", func() {
			respond = func(w http.ResponseWriter, _ *http.Request) {
				io.WriteString(w, "<html>gateway</html>")
			}
			p := newRelay(llm.Limits{}, emailSink)

			status, body, _ := chat(p, `{"messages":[{"role":"user","content":"hi"}]}`)
			p.Close()

			Expect(status).To(Equal(http.StatusInternalServerError))
			Expect(body).To(Equal(genericError))
			Expect(emailSink.Reports()[0].Message).To(ContainSubstring("parsing upstream response"))
		})

		It("reports an upstream timeout", func() {
			respond = func(_ http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(5 * time.Second):
				}
			}
			client, err := openai.NewClient(openai.Config{
				BaseURL: upstream.URL,
				APIKey:  "sk-test",
				Model:   "gpt-4o-mini",
				Timeout: 50 * time.Millisecond,
			})
			Expect(err).NotTo(HaveOccurred())
			p, err := New(Config{}, client, []notify.Notifier{emailSink}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			status, body, _ := chat(p, `{"messages":[{"role":"user","content":"hi"}]}`)
			p.Close()

			Expect(status).To(Equal(http.StatusInternalServerError))
			Expect(body).To(Equal(genericError))
			Expect(emailSink.Attempts()).To(Equal(1))
		})

		It("reports a malformed request body without calling upstream", func() {
			p := newRelay(llm.Limits{}, emailSink)

			status, body, _ := chat(p, `not json`)
			p.Close()

			Expect(status).To(Equal(http.StatusInternalServerError))
			Expect(body).To(Equal(genericError))
			Expect(callCount.Load()).To(BeZero())
			Expect(emailSink.Attempts()).To(Equal(1))
		})

		It("rejects a conversation over the limits without reporting", func() {
			p := newRelay(llm.Limits{MaxMessages: 1}, emailSink, webhookSink)

			status, body, _ := chat(p, `{"messages":[{"role":"user","content":"a"},{"role":"assistant","content":"b"}]}`)
			p.Close()

			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(Equal(`{"error":"Bad Request"}`))
			Expect(callCount.Load()).To(BeZero())
			Expect(emailSink.Attempts()).To(BeZero())
			Expect(webhookSink.Attempts()).To(BeZero())
		})

		It("delivers the webhook payload end to end", func() {
			respond = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}

			received := make(chan map[string]string, 1)
			hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var payload map[string]string
				_ = json.NewDecoder(r.Body).Decode(&payload)
				received <- payload
				w.WriteHeader(http.StatusOK)
			}))
			DeferCleanup(hook.Close)

			wh, err := webhook.New(hook.URL, hook.Client())
			Expect(err).NotTo(HaveOccurred())
			p := newRelay(llm.Limits{}, wh, emailSink)

			status, _, _ := chat(p, `{"messages":[{"role":"user","content":"hi"}]}`)
			p.Close()

			Expect(status).To(Equal(http.StatusInternalServerError))
			var payload map[string]string
			Eventually(received).Should(Receive(&payload))
			Expect(payload).To(HaveLen(2))
			Expect(payload["error"]).To(ContainSubstring("503"))
			_, err = time.Parse(time.RFC3339, payload["timestamp"])
			Expect(err).NotTo(HaveOccurred())
			Expect(emailSink.Attempts()).To(Equal(1))
		})

		It("recovers a panic as a reported failure", func() {
			p, err := New(Config{}, panicCompleter{}, []notify.Notifier{emailSink}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			status, body, _ := chat(p, `{"messages":[]}`)
			p.Close()

			Expect(status).To(Equal(http.StatusInternalServerError))
			Expect(body).To(Equal(genericError))
			Expect(emailSink.Attempts()).To(Equal(1))
			Expect(emailSink.Reports()[0].Message).To(ContainSubstring("completer exploded"))
		})
	})

	Describe("other routes", func() {
		It("answers ping", func() {
			p := newRelay(llm.Limits{})
			DeferCleanup(func() { p.Close() })

			status, body, _ := do(p, httptest.NewRequest(http.MethodGet, "/ping", nil))
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"status":"ok"}`))
		})

		It("keeps 404 for unknown routes without reporting", func() {
			p := newRelay(llm.Limits{}, emailSink)

			status, _, _ := do(p, httptest.NewRequest(http.MethodGet, "/nope", nil))
			p.Close()

			Expect(status).To(Equal(http.StatusNotFound))
			Expect(emailSink.Attempts()).To(BeZero())
		})

		It("answers CORS preflight for the widget", func() {
			p := newRelay(llm.Limits{})
			DeferCleanup(func() { p.Close() })

			req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
			req.Header.Set("Origin", "https://widget.example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)

			status, _, headers := do(p, req)
			Expect(status).To(Equal(http.StatusNoContent))
			Expect(headers.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})
})
