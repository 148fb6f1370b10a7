package gmb_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/replyhub/autoreply-go/pkg/interfaces/gmb"
)

var _ = Describe("Client", func() {
	var (
		ctx        context.Context
		server     *httptest.Server
		mux        *http.ServeMux
		client     *gmb.Client
		cred       gmb.Credential
		tokenCalls int32
	)

	BeforeEach(func() {
		ctx = context.Background()
		cred = gmb.Credential{RefreshToken: "user-refresh-token"}
		atomic.StoreInt32(&tokenCalls, 0)

		mux = http.NewServeMux()
		mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&tokenCalls, 1)
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.FormValue("grant_type")).To(Equal("refresh_token"))
			Expect(r.FormValue("refresh_token")).To(Equal("user-refresh-token"))
			Expect(r.FormValue("client_id")).To(Equal("test-client"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "access-abc",
				"expires_in":   3600,
				"token_type":   "Bearer",
			})
		})

		server = httptest.NewServer(mux)

		logger := logrus.New()
		logger.SetOutput(GinkgoWriter)

		config := &gmb.Config{
			ClientID:        "test-client",
			ClientSecret:    "test-secret",
			AccountsBaseURL: server.URL + "/v1",
			ReviewsBaseURL:  server.URL + "/v4",
			TokenURL:        server.URL + "/token",
			RequestTimeout:  5 * time.Second,
			PageSize:        2,
			RateLimit:       6000,
			RateWindow:      time.Minute,
			Logger:          logger,
		}

		var err error
		client, err = gmb.NewClient(config, gmb.WithHTTPClient(server.Client()))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("GetAccount", func() {
		It("resolves the first account and sends the bearer token", func() {
			mux.HandleFunc("/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer access-abc"))
				json.NewEncoder(w).Encode(map[string]interface{}{
					"accounts": []map[string]string{
						{"name": "accounts/123", "accountName": "Blue Bakery"},
						{"name": "accounts/456", "accountName": "Second"},
					},
				})
			})

			account, err := client.GetAccount(ctx, cred)

			Expect(err).NotTo(HaveOccurred())
			Expect(account.Name).To(Equal("accounts/123"))
			Expect(account.AccountName).To(Equal("Blue Bakery"))
		})

		It("returns nil without error when the credential has no accounts", func() {
			mux.HandleFunc("/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{"accounts": []interface{}{}})
			})

			account, err := client.GetAccount(ctx, cred)

			Expect(err).NotTo(HaveOccurred())
			Expect(account).To(BeNil())
		})

		It("caches the access token across calls", func() {
			mux.HandleFunc("/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{"accounts": []interface{}{}})
			})

			_, err := client.GetAccount(ctx, cred)
			Expect(err).NotTo(HaveOccurred())
			_, err = client.GetAccount(ctx, cred)
			Expect(err).NotTo(HaveOccurred())

			Expect(atomic.LoadInt32(&tokenCalls)).To(Equal(int32(1)))
		})

		It("surfaces the API error envelope", func() {
			mux.HandleFunc("/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]interface{}{
						"code":    403,
						"message": "The caller does not have permission",
						"status":  "PERMISSION_DENIED",
					},
				})
			})

			_, err := client.GetAccount(ctx, cred)

			Expect(err).To(MatchError(ContainSubstring("PERMISSION_DENIED")))
			Expect(err).To(MatchError(ContainSubstring("does not have permission")))
		})
	})

	Describe("GetLocations", func() {
		It("follows pagination to the end", func() {
			mux.HandleFunc("/v1/accounts/123/locations", func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("pageToken") == "" {
					json.NewEncoder(w).Encode(map[string]interface{}{
						"locations": []map[string]string{
							{"name": "locations/1", "title": "Downtown"},
							{"name": "locations/2", "title": "Harbor"},
						},
						"nextPageToken": "page-2",
					})
					return
				}
				json.NewEncoder(w).Encode(map[string]interface{}{
					"locations": []map[string]string{
						{"name": "locations/3", "title": "Airport"},
					},
				})
			})

			locations, err := client.GetLocations(ctx, cred, "accounts/123")

			Expect(err).NotTo(HaveOccurred())
			Expect(locations).To(HaveLen(3))
			Expect(locations[2].Title).To(Equal("Airport"))
		})
	})

	Describe("GetReviews", func() {
		newReview := func(id string, updated time.Time) map[string]interface{} {
			return map[string]interface{}{
				"name":       "accounts/123/locations/1/reviews/" + id,
				"reviewId":   id,
				"starRating": "FIVE",
				"comment":    "Great",
				"createTime": updated.Format(time.RFC3339),
				"updateTime": updated.Format(time.RFC3339),
			}
		}

		It("stops paginating once a page reaches reviews older than since", func() {
			cutoff := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
			var pageTokensSeen []string

			mux.HandleFunc("/v4/accounts/123/locations/1/reviews", func(w http.ResponseWriter, r *http.Request) {
				pageTokensSeen = append(pageTokensSeen, r.URL.Query().Get("pageToken"))
				json.NewEncoder(w).Encode(map[string]interface{}{
					"reviews": []map[string]interface{}{
						newReview("new", cutoff.Add(24*time.Hour)),
						newReview("old", cutoff.Add(-24*time.Hour)),
					},
					"nextPageToken": "more",
				})
			})

			reviews, err := client.GetReviews(ctx, cred, "accounts/123", "locations/1", cutoff)

			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(HaveLen(1))
			Expect(reviews[0].ReviewID).To(Equal("new"))
			Expect(pageTokensSeen).To(Equal([]string{""}))
		})

		It("decodes a response larger than the transport buffers without a caller deadline", func() {
			// A body this size is not fully buffered by the time the
			// request returns, so decoding must finish before the
			// client releases its per-request timeout context.
			bigComment := strings.Repeat("Lovely place, would visit again. ", 10000)

			mux.HandleFunc("/v4/accounts/123/locations/1/reviews", func(w http.ResponseWriter, r *http.Request) {
				review := newReview("big", time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC))
				review["comment"] = bigComment
				json.NewEncoder(w).Encode(map[string]interface{}{
					"reviews": []map[string]interface{}{review},
				})
			})

			reviews, err := client.GetReviews(context.Background(), cred, "accounts/123", "locations/1", time.Time{})

			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(HaveLen(1))
			Expect(reviews[0].Comment).To(Equal(bigComment))
		})

		It("fetches every page when since is zero", func() {
			mux.HandleFunc("/v4/accounts/123/locations/1/reviews", func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("pageToken") == "" {
					json.NewEncoder(w).Encode(map[string]interface{}{
						"reviews": []map[string]interface{}{
							newReview("a", time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)),
							newReview("b", time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)),
						},
						"nextPageToken": "page-2",
					})
					return
				}
				json.NewEncoder(w).Encode(map[string]interface{}{
					"reviews": []map[string]interface{}{
						newReview("c", time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)),
					},
				})
			})

			reviews, err := client.GetReviews(ctx, cred, "accounts/123", "locations/1", time.Time{})

			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(HaveLen(3))
		})
	})

	Describe("PostReply", func() {
		It("puts the reply body on the review's reply resource", func() {
			var gotBody map[string]string
			var gotMethod string

			mux.HandleFunc("/v4/accounts/123/locations/1/reviews/r1/reply", func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())
				fmt.Fprint(w, "{}")
			})

			err := client.PostReply(ctx, cred, "accounts/123/locations/1/reviews/r1", "Thanks, Alex!")

			Expect(err).NotTo(HaveOccurred())
			Expect(gotMethod).To(Equal(http.MethodPut))
			Expect(gotBody).To(HaveKeyWithValue("comment", "Thanks, Alex!"))
		})

		It("rejects an empty reply before touching the network", func() {
			err := client.PostReply(ctx, cred, "accounts/123/locations/1/reviews/r1", "")
			Expect(err).To(MatchError(ContainSubstring("must not be empty")))
		})
	})

	Describe("DeleteReply", func() {
		It("issues a delete on the reply resource", func() {
			var gotMethod string
			mux.HandleFunc("/v4/accounts/123/locations/1/reviews/r1/reply", func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				fmt.Fprint(w, "{}")
			})

			err := client.DeleteReply(ctx, cred, "accounts/123/locations/1/reviews/r1")

			Expect(err).NotTo(HaveOccurred())
			Expect(gotMethod).To(Equal(http.MethodDelete))
		})
	})

	Describe("Authenticator", func() {
		It("refuses a credential without a refresh token", func() {
			_, err := client.GetAccount(ctx, gmb.Credential{})
			Expect(err).To(MatchError(ContainSubstring("no refresh token")))
		})

		It("surfaces an OAuth rejection", func() {
			rejecting := http.NewServeMux()
			rejecting.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{
					"error":             "invalid_grant",
					"error_description": "Token has been expired or revoked.",
				})
			})
			rejectingServer := httptest.NewServer(rejecting)
			defer rejectingServer.Close()

			logger := logrus.New()
			logger.SetOutput(GinkgoWriter)

			badClient, err := gmb.NewClient(&gmb.Config{
				ClientID:        "test-client",
				ClientSecret:    "test-secret",
				AccountsBaseURL: rejectingServer.URL + "/v1",
				ReviewsBaseURL:  rejectingServer.URL + "/v4",
				TokenURL:        rejectingServer.URL + "/token",
				RequestTimeout:  5 * time.Second,
				PageSize:        50,
				RateLimit:       6000,
				RateWindow:      time.Minute,
				Logger:          logger,
			}, gmb.WithHTTPClient(rejectingServer.Client()))
			Expect(err).NotTo(HaveOccurred())

			_, err = badClient.GetAccount(ctx, cred)
			Expect(err).To(MatchError(ContainSubstring("invalid_grant")))
		})
	})
})
