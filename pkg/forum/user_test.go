package forum_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tbgers/tbgclient/internal/event"
	"github.com/tbgers/tbgclient/pkg/forum"
)

var _ = Describe("User", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture(1)
	})

	It("reads a profile", func() {
		u, err := (&forum.User{UID: bobID}).Fetch(f.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.UID).To(Equal(bobID))
		Expect(u.Name).To(Equal("bob"))
		Expect(u.Group).To(Equal(forum.GroupTBGer))
		Expect(u.Group.Known()).To(BeTrue())
		Expect(u.Posts).To(Equal(1))
	})

	It("reads the session's own profile without an id", func() {
		u, err := (&forum.User{}).Update(f.ctx, "get")
		Expect(err).NotTo(HaveOccurred())
		Expect(u.UID).To(Equal(aliceID))
		Expect(u.Group).To(Equal(forum.GroupTBGTeam))
	})

	It("saves the forum profile", func() {
		updated := expectEvent(event.ProfileUpdated)

		me := &forum.User{
			UID:      aliceID,
			Blurb:    "Playing board games",
			Location: "Tabletop",
			RealName: "Alice",
			Gender:   "Female",
			Website:  "https://alice.example",
			Social:   map[string]string{"Jabber": "alice@jabber.example", "skype": "ignored"},
		}
		birthday := time.Date(1990, time.February, 14, 0, 0, 0, 0, time.UTC)
		_, err := me.SubmitProfile(f.ctx, &birthday)
		Expect(err).NotTo(HaveOccurred())

		stored, _ := f.forum.User(aliceID)
		Expect(stored.Blurb).To(Equal("Playing board games"))
		Expect(stored.Location).To(Equal("Tabletop"))
		Expect(stored.RealName).To(Equal("Alice"))
		Expect(stored.Gender).To(Equal("Female"))
		Expect(stored.Website).To(Equal("https://alice.example"))
		Expect(stored.Birthday).To(Equal([3]string{"14", "2", "1990"}))
		Expect(stored.Custom).To(HaveKeyWithValue("cust_jabber", "alice@jabber.example"))
		Expect(stored.Custom).To(HaveKeyWithValue("cust_msn", ""))
		Expect(stored.Avatar).To(BeEmpty())

		Eventually(updated).Should(Receive())

		fetched, err := (&forum.User{UID: aliceID}).Fetch(f.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(fetched.Location).To(Equal("Tabletop"))
		Expect(fetched.Social).To(HaveKeyWithValue("jabber", "alice@jabber.example"))
	})

	It("keeps the birthday when none is given", func() {
		birthday := time.Date(2001, time.July, 4, 0, 0, 0, 0, time.UTC)
		_, err := (&forum.User{UID: aliceID}).SubmitProfile(f.ctx, &birthday)
		Expect(err).NotTo(HaveOccurred())

		_, err = (&forum.User{UID: aliceID, Blurb: "again"}).Submit(f.ctx, "profile")
		Expect(err).NotTo(HaveOccurred())

		stored, _ := f.forum.User(aliceID)
		Expect(stored.Birthday).To(Equal([3]string{"4", "7", "2001"}))
		Expect(stored.Blurb).To(Equal("again"))
	})

	It("rejects profiles it cannot submit", func() {
		_, err := (&forum.User{}).SubmitProfile(f.ctx, nil)
		var incomplete *forum.IncompleteError
		Expect(errors.As(err, &incomplete)).To(BeTrue())

		_, err = (&forum.User{UID: aliceID, Gender: "Dragon"}).SubmitProfile(f.ctx, nil)
		Expect(err).To(MatchError(forum.ErrUnknownGender))

		_, err = (&forum.User{UID: bobID}).SubmitProfile(f.ctx, nil)
		Expect(err).To(HaveOccurred())
	})

	It("binds to a session", func() {
		bob := f.login("bob")
		b, err := forum.GetUser(f.ctx, bob, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Value().Name).To(Equal("bob"))
	})
})
