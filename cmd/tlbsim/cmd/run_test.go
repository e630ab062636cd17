package cmd

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	_ "github.com/mattn/go-sqlite3"
)

func smallSimConfig() SimConfig {
	c := DefaultSimConfig()
	c.NumCores = 2
	c.NumRequests = 200
	c.NumPages = 32
	c.WalkLatency = 10
	c.MaxCycles = 1000000

	return c
}

var _ = ginkgo.Describe("Run", func() {
	ginkgo.It("should translate every request and report the statistics", func() {
		out := new(bytes.Buffer)

		err := runSimulation(runOptions{config: smallSimConfig()}, out)
		Expect(err).NotTo(HaveOccurred())

		var r Report
		Expect(yaml.Unmarshal(out.Bytes(), &r)).To(Succeed())

		Expect(r.Cycles).To(BeNumerically(">", 0))
		Expect(r.PerCore).To(HaveLen(2))
		Expect(r.WrongTranslations).To(BeZero())
		Expect(r.L1.Accesses).To(BeNumerically(">=", 400))
		Expect(r.PageWalks).To(BeNumerically("<=", 32))
		Expect(r.PageWalks).To(BeNumerically(">", 0))
		Expect(r.Total.Accesses).To(Equal(r.L1.Accesses + r.L2.Accesses))
		Expect(r.AvgL1Cycles).To(BeNumerically(">", 0))
	})

	ginkgo.It("should write the report to a file", func() {
		path := filepath.Join(ginkgo.GinkgoT().TempDir(), "report.yaml")
		opts := runOptions{config: smallSimConfig(), output: path}

		out := new(bytes.Buffer)
		Expect(runSimulation(opts, out)).To(Succeed())
		Expect(out.Len()).To(BeZero())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("page_walks:"))
	})

	ginkgo.It("should record traces and statistics into a database", func() {
		path := filepath.Join(ginkgo.GinkgoT().TempDir(), "trace")
		c := smallSimConfig()
		c.NumRequests = 20
		opts := runOptions{config: c, traceDB: path}

		Expect(runSimulation(opts, new(bytes.Buffer))).To(Succeed())

		db, err := sql.Open("sqlite3", path+".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		var units int
		Expect(db.QueryRow("SELECT COUNT(*) FROM tlb_stats").
			Scan(&units)).To(Succeed())
		Expect(units).To(Equal(3))

		var walks int
		Expect(db.QueryRow(
			"SELECT COUNT(*) FROM trace WHERE Kind = 'walk'").
			Scan(&walks)).To(Succeed())
		Expect(walks).To(BeNumerically(">", 0))
	})
})
