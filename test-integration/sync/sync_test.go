package integration

import (
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	syncapp "github.com/NationalGenomicsInfrastructure/acheron/internal/app"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/charon"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/charon/charontest"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/config"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/lims"
	pkgsync "github.com/NationalGenomicsInfrastructure/acheron/internal/sync"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/sync/coordinator"
	"github.com/NationalGenomicsInfrastructure/acheron/test-integration/sync/helpers"
)

const charonToken = "integration-token"

var _ = Describe("Sync", Label("sync"), func() {
	var (
		fake    *charontest.Server
		cfgPath string
	)

	fresh := func() []helpers.LIMSProject {
		return projects[:projectCount]
	}

	BeforeEach(func() {
		fake = charontest.NewServer(charonToken)
		srv := httptest.NewServer(fake.Handler())
		DeferCleanup(srv.Close)

		var err error
		cfgPath, err = helpers.WriteConfigYAML(GinkgoT().TempDir(), limsConnStr, srv.URL, charonToken, 4)
		Expect(err).NotTo(HaveOccurred())
	})

	run := func(sel pkgsync.Selection) *coordinator.Summary {
		cfg, err := config.LoadConfig(config.WithConfigPath(cfgPath))
		Expect(err).NotTo(HaveOccurred())

		app, err := syncapp.NewSyncApp(ctx,
			syncapp.WithConfig(cfg),
			syncapp.WithRunID(uuid.NewString()),
			syncapp.WithLogHandler(slog.NewJSONHandler(GinkgoWriter, nil), slog.LevelDebug),
		)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(app.Close)

		summary, err := app.Run(ctx, sel)
		Expect(err).NotTo(HaveOccurred())
		return summary
	}

	Context("with --all", func() {
		It("syncs every project created after the cut-off once", func() {
			summary := run(pkgsync.Selection{All: true})

			Expect(summary.Errors).To(BeEmpty())
			Expect(summary.Pending).To(BeZero())
			Expect(summary.Results).To(HaveLen(projectCount))
			Expect(summary.Documents()).To(HaveKeyWithValue(charon.OutcomeCreated, 5*projectCount))
			Expect(fake.Len()).To(Equal(5 * projectCount))

			for _, p := range fresh() {
				project, ok := fake.Document("project/" + p.LUID)
				Expect(ok).To(BeTrue(), p.LUID)
				Expect(project).To(HaveKeyWithValue("name", p.Name))
				Expect(project).To(HaveKeyWithValue("sequencing_facility", "NGI-U"))

				_, ok = fake.Document(p.SeqRunPath())
				Expect(ok).To(BeTrue(), p.SeqRunPath())
			}
			_, ok := fake.Document("project/" + projects[projectCount].LUID)
			Expect(ok).To(BeFalse(), "stale projects are before the cut-off")
		})

		It("writes nothing when run again without LIMS changes", func() {
			run(pkgsync.Selection{All: true})
			fake.ResetRequests()

			summary := run(pkgsync.Selection{All: true})
			Expect(summary.Documents()).To(Equal(map[charon.Outcome]int{
				charon.OutcomeUnchanged: 5 * projectCount,
			}))
			Expect(fake.Writes()).To(BeEmpty())
		})

		It("keeps going when Charon rejects a document", func() {
			rejected := projects[2]
			fake.FailOn(http.MethodPost, "/api/v1/libprep/"+rejected.LUID+"/"+rejected.SampleName(1),
				http.StatusBadRequest, "invalid libprep")

			summary := run(pkgsync.Selection{All: true})

			Expect(summary.Errors).To(BeEmpty())
			Expect(summary.Results).To(HaveLen(projectCount))
			// the seqrun has no parent once its libprep is rejected
			Expect(summary.Documents()).To(HaveKeyWithValue(charon.OutcomeFailed, 2))
			Expect(summary.Documents()).To(HaveKeyWithValue(charon.OutcomeCreated, 5*projectCount-2))
		})
	})

	Context("with --new", func() {
		It("syncs the recently modified projects only", func() {
			summary := run(pkgsync.Selection{Recent: true})

			Expect(summary.Results).To(HaveLen(projectCount))
			for _, r := range summary.Results {
				Expect(r.ProjectID).NotTo(Equal(projects[projectCount].LUID))
			}
		})
	})

	Context("with --project", func() {
		It("syncs a project named by its LIMS name", func() {
			p := projects[0]
			summary := run(pkgsync.Selection{ProjectID: p.Name})

			Expect(summary.Errors).To(BeEmpty())
			Expect(summary.Results).To(HaveLen(1))
			Expect(fake.Len()).To(Equal(p.DocumentCount()))
		})

		It("syncs a stale project when asked for it", func() {
			p := projects[projectCount]
			summary := run(pkgsync.Selection{ProjectID: p.LUID})

			Expect(summary.Results).To(HaveLen(1))
			Expect(summary.Documents()).To(HaveKeyWithValue(charon.OutcomeCreated, p.DocumentCount()))
		})

		It("reports an unknown project without failing the run", func() {
			summary := run(pkgsync.Selection{ProjectID: "P424242"})

			Expect(summary.Results).To(BeEmpty())
			Expect(summary.Errors).To(HaveLen(1))
			Expect(summary.Errors[0]).To(MatchError(lims.ErrProjectNotFound))
			Expect(fake.Len()).To(BeZero())
		})
	})
})
