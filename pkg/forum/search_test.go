package forum_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tbgers/tbgclient/internal/forumtest"
	"github.com/tbgers/tbgclient/pkg/forum"
)

var _ = Describe("Search", func() {
	Describe("EncodeParams", func() {
		It("encodes the defaults in the forum's field order", func() {
			encoded, err := (&forum.Search{Query: "board games"}).EncodeParams()
			Expect(err).NotTo(HaveOccurred())
			Expect(encoded).NotTo(ContainSubstring("+"))
			Expect(encoded).NotTo(ContainSubstring("/"))
			Expect(encoded).NotTo(ContainSubstring("="))

			keys, err := forumtest.DecodeSearchKeys(encoded)
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(Equal([]string{"advanced", "brd", "sort", "sort_dir", "search", "searchtype", "userspec", "minage", "maxage"}))

			params, err := forumtest.DecodeSearchParams(encoded)
			Expect(err).NotTo(HaveOccurred())
			Expect(params).To(Equal(forumtest.SearchParams{
				"advanced":   "1",
				"brd":        "2,3,5,6",
				"sort":       "relevance",
				"sort_dir":   "desc",
				"search":     "board games",
				"searchtype": "1",
				"userspec":   "*",
				"minage":     "0",
				"maxage":     "9999",
			}))
		})

		It("encodes every option", func() {
			s := &forum.Search{
				Query:       "dice",
				Match:       forum.AnyWords,
				Users:       []string{"alice", "bob"},
				Sort:        forum.SortID,
				Order:       forum.Ascending,
				Complete:    true,
				SubjectOnly: true,
				MinAge:      1,
				MaxAge:      30,
				Boards:      []int{7},
			}
			encoded, err := s.EncodeParams()
			Expect(err).NotTo(HaveOccurred())
			params, err := forumtest.DecodeSearchParams(encoded)
			Expect(err).NotTo(HaveOccurred())
			Expect(params).To(HaveKeyWithValue("searchtype", "2"))
			Expect(params).To(HaveKeyWithValue("userspec", "alice,bob"))
			Expect(params).To(HaveKeyWithValue("sort", "id_msg"))
			Expect(params).To(HaveKeyWithValue("sort_dir", "asc"))
			Expect(params).To(HaveKeyWithValue("brd", "7"))
			Expect(params).To(HaveKeyWithValue("minage", "1"))
			Expect(params).To(HaveKeyWithValue("maxage", "30"))
			Expect(params).To(HaveKey("show_complete"))
			Expect(params).To(HaveKey("subject_only"))
		})
	})

	Describe("Page", func() {
		var f *fixture

		BeforeEach(func() {
			f = newFixture(0)
			f.forum.Reply(f.tid, bobID, "Dice rolls", "I rolled a six")
			f.forum.Reply(f.tid, aliceID, "Cards", "shuffling the deck")
			f.forum.Reply(f.tid, bobID, "More dice", "and a deck of cards")
		})

		It("finds messages containing all words", func() {
			page, err := (&forum.Search{Query: "deck of"}).Page(f.ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Contents).To(HaveLen(1))
			hit := page.Contents[0]
			Expect(hit.Subject).To(Equal("More dice"))
			Expect(hit.TID).To(Equal(f.tid))
			Expect(hit.User.Name).To(Equal("bob"))
			Expect(hit.Content).To(Equal("and a deck of cards"))
			Expect(hit.Date.IsZero()).To(BeFalse())
		})

		It("finds messages containing any word, newest first", func() {
			page, err := (&forum.Search{Query: "six shuffling", Match: forum.AnyWords}).Page(f.ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Contents).To(HaveLen(2))
			Expect(page.Contents[0].Subject).To(Equal("Cards"))
			Expect(page.Contents[1].Subject).To(Equal("Dice rolls"))
		})

		It("filters by member and subject", func() {
			page, err := (&forum.Search{Query: "dice", Users: []string{"bob"}, SubjectOnly: true, Order: forum.Ascending}).Page(f.ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Contents).To(HaveLen(2))
			Expect(page.Contents[0].Subject).To(Equal("Dice rolls"))

			page, err = (&forum.Search{Query: "deck", Users: []string{"alice"}}).Page(f.ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Contents).To(HaveLen(1))
			Expect(page.Contents[0].Subject).To(Equal("Cards"))
		})

		It("iterates over a single page of results", func() {
			n := 0
			for page, err := range (&forum.Search{Query: "dice"}).All(f.ctx) {
				Expect(err).NotTo(HaveOccurred())
				Expect(page.Last()).To(BeTrue())
				n++
			}
			Expect(n).To(Equal(1))
		})

		It("needs a query", func() {
			_, err := (&forum.Search{Query: "  "}).Page(f.ctx, 1)
			var incomplete *forum.IncompleteError
			Expect(errors.As(err, &incomplete)).To(BeTrue())
			Expect(incomplete.Fields).To(Equal([]string{"query"}))
		})
	})
})
