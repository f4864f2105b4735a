package utils

import (
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
	})

	It("returns the string unchanged when exactly at the limit", func() {
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with ellipsis when over the limit", func() {
		result := Truncate("this is a long string", 10)
		Expect(result).To(Equal("this is a ..."))
	})

	It("backs off to a character boundary instead of splitting one", func() {
		// "é" is two bytes, so a cut at 2 would land inside it.
		result := Truncate("aé and more", 2)
		Expect(result).To(Equal("a..."))
		Expect(utf8.ValidString(result)).To(BeTrue())
	})

	It("keeps multi-byte text valid at any cut", func() {
		s := "ошибка апстрима 世界"
		for n := 0; n < len(s); n++ {
			Expect(utf8.ValidString(Truncate(s, n))).To(BeTrue(), "cut at %d", n)
		}
	})
})
