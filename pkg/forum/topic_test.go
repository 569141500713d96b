package forum_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tbgers/tbgclient/internal/forumtest"
	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/forum"
)

var _ = Describe("Topic", func() {
	var f *fixture

	BeforeEach(func() {
		// One full page and a partial second one.
		f = newFixture(api.TopicPerPage + 4)
	})

	It("reads its name and page count", func() {
		topic, err := (&forum.Topic{TID: f.tid}).Fetch(f.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(topic.Name).To(Equal("Welcome"))
		Expect(topic.Pages).To(Equal(2))
	})

	It("reads a page", func() {
		page, err := (&forum.Topic{TID: f.tid}).Page(f.ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(page.CurrentPage).To(Equal(2))
		Expect(page.TotalPages).To(Equal(2))
		Expect(page.Last()).To(BeTrue())
		Expect(page.Contents).To(HaveLen(5))
		Expect(page.Contents[0].MID).To(Equal(f.mids[forumtest.PostsPerPage]))
		Expect(page.Hierarchy[len(page.Hierarchy)-1].Name).To(Equal("Welcome"))
	})

	It("iterates over every page", func() {
		var pages, messages int
		for page, err := range (&forum.Topic{TID: f.tid}).All(f.ctx) {
			Expect(err).NotTo(HaveOccurred())
			pages++
			for range page.All() {
				messages++
			}
		}
		Expect(pages).To(Equal(2))
		Expect(messages).To(Equal(len(f.mids)))
	})

	It("stops iterating at the first error", func() {
		var errs int
		for page, err := range (&forum.Topic{TID: 9999}).All(f.ctx) {
			Expect(page).To(BeNil())
			Expect(api.StatusCode(err)).To(Equal(404))
			errs++
		}
		Expect(errs).To(Equal(1))
	})

	It("validates its input", func() {
		_, err := (&forum.Topic{TID: f.tid}).Page(f.ctx, 0)
		Expect(err).To(HaveOccurred())

		_, err = (&forum.Topic{}).Fetch(f.ctx)
		var incomplete *forum.IncompleteError
		Expect(errors.As(err, &incomplete)).To(BeTrue())
	})

	It("only knows how to get", func() {
		_, err := (&forum.Topic{TID: f.tid}).Update(f.ctx, "get")
		Expect(err).NotTo(HaveOccurred())
		_, err = (&forum.Topic{TID: f.tid}).Submit(f.ctx, "post")
		Expect(err).To(MatchError(forum.ErrMethodNotImplemented))
	})
})
