package forum_test

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tbgers/tbgclient/internal/event"
	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/forum"
	"github.com/tbgers/tbgclient/pkg/parser"
	"github.com/tbgers/tbgclient/pkg/session"
)

var _ = Describe("Message", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture(3)
	})

	Describe("Fetch", func() {
		It("reads the message from its topic page", func() {
			msg, err := (&forum.Message{MID: f.mids[2]}).Fetch(f.ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(msg.MID).To(Equal(f.mids[2]))
			Expect(msg.TID).To(Equal(f.tid))
			Expect(msg.Subject).To(Equal("Re: Welcome"))
			Expect(msg.Content).To(Equal("hello number 1"))
			Expect(msg.Icon).To(Equal(forum.IconStandard))
			Expect(msg.User.Name).To(Equal("bob"))
			Expect(msg.User.UID).To(Equal(bobID))
			Expect(msg.Date.IsZero()).To(BeFalse())
		})

		It("leaves the receiver untouched", func() {
			orig := &forum.Message{MID: f.mids[0]}
			_, err := orig.Fetch(f.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(orig.Content).To(BeEmpty())
		})

		It("requires a message id", func() {
			_, err := (&forum.Message{}).Fetch(f.ctx)
			var incomplete *forum.IncompleteError
			Expect(errors.As(err, &incomplete)).To(BeTrue())
			Expect(incomplete.Fields).To(Equal([]string{"mid"}))
		})

		It("reports missing messages with the status code", func() {
			_, err := (&forum.Message{MID: 9999}).Fetch(f.ctx)
			Expect(err).To(HaveOccurred())
			Expect(api.StatusCode(err)).To(Equal(http.StatusNotFound))
		})

		It("fails without any session", func() {
			session.ClearDefault()
			_, err := (&forum.Message{MID: f.mids[0]}).Fetch(context.Background())
			Expect(err).To(MatchError(session.ErrNoSessionDefined))
		})
	})

	Describe("FetchSource", func() {
		It("returns the BBCode source", func() {
			msg, err := (&forum.Message{MID: f.mids[0], TID: f.tid}).FetchSource(f.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Subject).To(Equal("Welcome"))
			Expect(msg.Content).To(Equal("Welcome to the <b>forums</b>"))
			Expect(msg.TID).To(Equal(f.tid))
		})
	})

	Describe("Post", func() {
		It("replies to the topic and reports the new id", func() {
			posted := expectEvent(event.MessagePosted)

			msg, err := (&forum.Message{TID: f.tid, Subject: "Re: Welcome", Content: "[b]hi[/b]", Icon: forum.IconSmiley}).Post(f.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.MID).NotTo(BeZero())

			stored, ok := f.forum.Post(msg.MID)
			Expect(ok).To(BeTrue())
			Expect(stored.UID).To(Equal(aliceID))
			Expect(stored.Body).To(Equal("[b]hi[/b]"))
			Expect(stored.Icon).To(Equal("smiley"))

			var e event.Event
			Eventually(posted).Should(Receive(&e))
			Expect(e.Data).To(Equal(event.ForumMessageData{
				SessionID: f.alice.ID(),
				TopicID:   f.tid,
				MessageID: msg.MID,
				Subject:   "Re: Welcome",
			}))
		})

		It("requires a topic id", func() {
			_, err := (&forum.Message{Content: "x"}).Post(f.ctx)
			var incomplete *forum.IncompleteError
			Expect(errors.As(err, &incomplete)).To(BeTrue())
			Expect(incomplete.Fields).To(ConsistOf("tid"))
		})

		It("surfaces the forum's error list", func() {
			_, err := (&forum.Message{TID: f.tid}).Post(f.ctx)
			var pageErr *parser.PageError
			Expect(errors.As(err, &pageErr)).To(BeTrue())
			Expect(pageErr.Message).To(ContainSubstring("left empty"))
		})
	})

	Describe("Edit", func() {
		It("replaces the message and publishes the reason", func() {
			edited := expectEvent(event.MessageEdited)

			msg := &forum.Message{MID: f.mids[0], TID: f.tid, Subject: "Welcome!", Content: "new body"}
			_, err := msg.Edit(f.ctx, "typo")
			Expect(err).NotTo(HaveOccurred())

			stored, _ := f.forum.Post(f.mids[0])
			Expect(stored.Subject).To(Equal("Welcome!"))
			Expect(stored.Body).To(Equal("new body"))
			Expect(stored.Reason).To(Equal("typo"))
			Expect(stored.Edited).NotTo(BeEmpty())

			var e event.Event
			Eventually(edited).Should(Receive(&e))
			Expect(e.Data.(event.ForumMessageData).Reason).To(Equal("typo"))

			fetched, err := (&forum.Message{MID: f.mids[0]}).Fetch(f.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Edited).To(HaveSuffix("by alice"))
		})

		It("requires both ids", func() {
			_, err := (&forum.Message{}).Edit(f.ctx, "")
			var incomplete *forum.IncompleteError
			Expect(errors.As(err, &incomplete)).To(BeTrue())
			Expect(incomplete.Fields).To(Equal([]string{"mid", "tid"}))
		})

		It("is refused on someone else's message", func() {
			_, err := (&forum.Message{MID: f.mids[1], TID: f.tid, Content: "mine now"}).Edit(f.ctx, "")
			var pageErr *parser.PageError
			Expect(errors.As(err, &pageErr)).To(BeTrue())
			Expect(pageErr.ID).To(Equal("cannot_modify"))
		})
	})

	Describe("Update and Submit", func() {
		It("dispatches by method name", func() {
			msg, err := (&forum.Message{MID: f.mids[0]}).Update(f.ctx, "quotefast")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Content).To(Equal("Welcome to the <b>forums</b>"))

			msg, err = (&forum.Message{MID: f.mids[0]}).Update(f.ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Content).To(Equal("Welcome to the <b>forums</b>"))
			Expect(msg.TID).To(Equal(f.tid))

			_, err = (&forum.Message{TID: f.tid, Content: "via submit"}).Submit(f.ctx, "post")
			Expect(err).NotTo(HaveOccurred())
			Expect(f.forum.Topic(f.tid)).To(HaveLen(5))
		})

		It("rejects unknown methods", func() {
			_, err := (&forum.Message{MID: 1}).Update(f.ctx, "delete")
			Expect(err).To(MatchError(forum.ErrMethodNotImplemented))
			_, err = (&forum.Message{MID: 1}).Submit(f.ctx, "delete")
			Expect(err).To(MatchError(forum.ErrMethodNotImplemented))
		})
	})

	Describe("rendering", func() {
		It("converts content to Markdown and text", func() {
			msg := &forum.Message{Content: `<b>bold</b> and <i>italic</i><br><a href="https://example.com">link</a>`}
			out, err := msg.Markdown()
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("**bold** and *italic*"))
			Expect(out).To(ContainSubstring("[link](https://example.com)"))
			Expect(msg.PlainText()).To(Equal("bold and italiclink"))
		})
	})

	Describe("bound to a session", func() {
		It("uses the paired session instead of the ambient one", func() {
			bob := f.login("bob")

			b, err := forum.GetMessage(f.ctx, bob, f.mids[1], "get")
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Session()).To(BeIdenticalTo(bob))
			Expect(b.Value().TID).To(Equal(f.tid))
			Expect(b.Value().Content).To(Equal("hello number 0"))

			_, err = b.Update(f.ctx, func(m *forum.Message, ctx context.Context) (*forum.Message, error) {
				m.Content = "edited by bob"
				return m.Edit(ctx, "")
			})
			Expect(err).NotTo(HaveOccurred())

			stored, _ := f.forum.Post(f.mids[1])
			Expect(stored.Body).To(Equal("edited by bob"))

			current, err := session.Current(f.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(current).To(BeIdenticalTo(f.alice))
		})

		It("returns no bound value on failure", func() {
			b, err := forum.GetMessage(f.ctx, f.alice, 9999, "get")
			Expect(err).To(HaveOccurred())
			Expect(b).To(BeNil())
		})

		It("reads topics", func() {
			b, err := forum.GetTopic(f.ctx, f.alice, f.tid, "get")
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Value().Name).To(Equal("Welcome"))
		})
	})
})
