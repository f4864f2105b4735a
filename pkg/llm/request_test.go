package llm_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/allie-chat/allieproxy/pkg/llm"
)

var _ = Describe("ParseChatRequest", func() {
	It("decodes messages and keeps the raw array", func() {
		body := []byte(`{"messages":[{"role":"user","content":"hi","name":"ada"}]}`)

		req, err := llm.ParseChatRequest(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(req.Messages).To(Equal([]llm.Message{llm.NewTextMessage("user", "hi")}))
		Expect(req.RawMessages).To(MatchJSON(`[{"role":"user","content":"hi","name":"ada"}]`))
	})

	It("accepts an empty conversation", func() {
		req, err := llm.ParseChatRequest([]byte(`{"messages":[]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(req.Messages).To(BeEmpty())
		Expect(req.RawMessages).To(MatchJSON(`[]`))
	})

	It("tolerates a missing messages field", func() {
		req, err := llm.ParseChatRequest([]byte(`{}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(req.Messages).To(BeNil())
		Expect(req.RawMessages).To(BeNil())
	})

	It("rejects an empty body", func() {
		_, err := llm.ParseChatRequest(nil)
		Expect(errors.Is(err, llm.ErrEmptyBody)).To(BeTrue())
	})

	It("rejects a body that is not JSON", func() {
		_, err := llm.ParseChatRequest([]byte(`hello`))
		Expect(err).To(HaveOccurred())
	})

	It("rejects messages that are not role/content objects", func() {
		_, err := llm.ParseChatRequest([]byte(`{"messages":"hi"}`))
		Expect(err).To(MatchError(ContainSubstring("decoding chat messages")))
	})
})

var _ = Describe("errors", func() {
	It("describes an upstream status failure", func() {
		err := &llm.UpstreamError{StatusCode: 401, Status: "401 Unauthorized"}
		Expect(err.Error()).To(Equal("upstream returned 401 Unauthorized"))
	})

	It("unwraps an upstream transport failure", func() {
		cause := errors.New("connection refused")
		err := &llm.UpstreamError{Err: cause}
		Expect(err.Error()).To(ContainSubstring("connection refused"))
		Expect(errors.Is(err, cause)).To(BeTrue())
	})

	It("unwraps a parse failure", func() {
		cause := errors.New("unexpected end of JSON input")
		var target *llm.ParseError
		Expect(errors.As(error(&llm.ParseError{Err: cause}), &target)).To(BeTrue())
		Expect(errors.Is(target, cause)).To(BeTrue())
	})
})
