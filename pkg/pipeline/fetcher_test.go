package pipeline_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/replyhub/autoreply-go/pkg/interfaces/gmb"
	"github.com/replyhub/autoreply-go/pkg/pipeline"
)

var _ = Describe("Fetcher", func() {
	var (
		ctx     context.Context
		api     *fakeReviewAPI
		fetcher *pipeline.Fetcher
		cred    gmb.Credential
	)

	BeforeEach(func() {
		ctx = context.Background()
		api = newFakeReviewAPI()
		fetcher = pipeline.NewFetcher(api, testLogger(), 24*time.Hour)
		cred = gmb.Credential{RefreshToken: "token"}
	})

	It("reports a credential with no business account", func() {
		api.account = nil

		result, err := fetcher.Fetch(ctx, cred, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.NoAccount).To(BeTrue())
	})

	It("gathers reviews across locations and computes the high-water mark", func() {
		api.account = &gmb.Account{Name: "accounts/1"}
		api.locations = []gmb.Location{
			{Name: "locations/1", Title: "Downtown"},
			{Name: "locations/2", Title: "Harbor"},
		}

		older := review("accounts/1/locations/1/reviews/a", gmb.StarRatingFive)
		older.UpdateTime = time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
		newer := review("accounts/1/locations/2/reviews/b", gmb.StarRatingFour)
		newer.UpdateTime = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

		api.reviews["locations/1"] = []gmb.Review{older}
		api.reviews["locations/2"] = []gmb.Review{newer}

		result, err := fetcher.Fetch(ctx, cred, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.ReviewCount()).To(Equal(2))
		Expect(result.LocationTitles()).To(ConsistOf("Downtown", "Harbor"))
		Expect(result.LatestReviewTime).To(Equal(newer.UpdateTime))
	})

	It("never regresses the high-water mark below the previous sync point", func() {
		api.account = &gmb.Account{Name: "accounts/1"}
		api.locations = []gmb.Location{{Name: "locations/1", Title: "Downtown"}}

		stale := review("accounts/1/locations/1/reviews/a", gmb.StarRatingFive)
		stale.CreateTime = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
		stale.UpdateTime = stale.CreateTime
		api.reviews["locations/1"] = []gmb.Review{stale}

		lastSync := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

		result, err := fetcher.Fetch(ctx, cred, &lastSync)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.LatestReviewTime).To(Equal(lastSync))
	})

	It("degrades a failing location to an empty review list", func() {
		api.account = &gmb.Account{Name: "accounts/1"}
		api.locations = []gmb.Location{
			{Name: "locations/1", Title: "Downtown"},
			{Name: "locations/2", Title: "Harbor"},
		}
		api.reviews["locations/1"] = []gmb.Review{review("accounts/1/locations/1/reviews/a", gmb.StarRatingFive)}
		api.reviewsErr["locations/2"] = errors.New("backend unavailable")

		result, err := fetcher.Fetch(ctx, cred, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.ReviewCount()).To(Equal(1))
		Expect(result.Reviews).To(HaveLen(2))
		Expect(result.Reviews[1].Reviews).To(BeEmpty())
	})

	It("propagates an account lookup failure", func() {
		api.accountErr = errors.New("401 unauthorized")

		_, err := fetcher.Fetch(ctx, cred, nil)

		Expect(err).To(MatchError(ContainSubstring("401 unauthorized")))
	})
})
