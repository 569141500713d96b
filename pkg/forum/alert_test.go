package forum_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tbgers/tbgclient/internal/forumtest"
	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/forum"
	"github.com/tbgers/tbgclient/pkg/session"
)

var _ = Describe("Alerts", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture(2)
		f.forum.AddAlert(forumtest.Alert{UID: aliceID, From: bobID, Verb: "mentioned you in", MID: f.mids[1], TID: f.tid})
		f.forum.AddAlert(forumtest.Alert{UID: aliceID, From: bobID, Verb: "quoted you in", MID: f.mids[2], TID: f.tid})
		f.forum.AddAlert(forumtest.Alert{UID: aliceID, From: bobID, Verb: "started a new topic", MID: f.mids[0], TID: f.tid})
		f.forum.AddAlert(forumtest.Alert{UID: aliceID, From: bobID, Verb: "liked your post", MID: f.mids[0], TID: f.tid})
		f.forum.AddAlert(forumtest.Alert{UID: bobID, From: aliceID, Verb: "mentioned you in", MID: f.mids[0], TID: f.tid})
	})

	It("classifies each alert, newest first", func() {
		page, err := forum.AlertsPage(f.ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(page.Contents).To(HaveLen(4))

		kinds := make([]forum.AlertKind, 0, 4)
		for a := range page.All() {
			kinds = append(kinds, a.Kind)
			Expect(a.User.Name).To(Equal("bob"))
		}
		Expect(kinds).To(Equal([]forum.AlertKind{forum.Unknown, forum.NewTopic, forum.Quoted, forum.Mentioned}))

		mention := page.Contents[3]
		Expect(mention.Message).NotTo(BeNil())
		Expect(mention.Message.MID).To(Equal(f.mids[1]))
		Expect(mention.Message.TID).To(Equal(f.tid))
		Expect(mention.Topic).To(BeNil())

		newTopic := page.Contents[1]
		Expect(newTopic.Topic).To(Equal(&forum.Topic{TID: f.tid, Name: "Welcome"}))
		Expect(newTopic.Message).To(BeNil())

		Expect(page.Contents[0].Text).To(ContainSubstring("liked your post"))
	})

	It("iterates until the last page", func() {
		n := 0
		for page, err := range forum.AlertPages(f.ctx) {
			Expect(err).NotTo(HaveOccurred())
			Expect(page.CurrentPage).To(Equal(page.TotalPages))
			n++
		}
		Expect(n).To(Equal(1))
	})

	It("needs a logged in session", func() {
		guest := session.New(f.options())
		err := guest.Use(context.Background(), func(ctx context.Context) error {
			_, err := forum.AlertsPage(ctx, 1)
			return err
		})
		Expect(api.StatusCode(err)).To(Equal(403))
	})

	It("names its kinds", func() {
		Expect(forum.Mentioned.String()).To(Equal("mentioned"))
		Expect(forum.NewTopic.String()).To(Equal("new topic"))
		text, err := forum.Unknown.MarshalText()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(text)).To(Equal("unknown"))
	})
})
