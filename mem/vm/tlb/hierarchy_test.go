package tlb

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tlbsim/mem/vm/pagewalk"
	"github.com/sarchlab/tlbsim/tracing"
)

var _ = Describe("Hierarchy", func() {
	var (
		walker *pagewalk.Walker
		h      *Hierarchy
		now    uint64
	)

	BeforeEach(func() {
		walker = pagewalk.MakeBuilder().
			WithLatency(5).
			WithAutoPageAllocation(true).
			WithFirstPhysicalPage(0x100000).
			Build("Walker")

		l1Config := smallConfig()
		l1Config.Latency = 1
		l2Config := smallConfig()
		l2Config.PortCount = 2

		h = MakeBuilder().
			WithNumCores(2).
			WithL1Config(l1Config).
			WithL2Config(l2Config).
			WithPageWalker(walker).
			Build("TLBHierarchy")
		now = 0
	})

	tickUntil := func(done func() bool) {
		for i := 0; i < 100; i++ {
			if done() {
				return
			}

			h.Tick(now)
			now++
		}

		Fail("hierarchy did not finish in 100 cycles")
	}

	It("should name the units", func() {
		Expect(h.NumCores()).To(Equal(2))
		Expect(h.L1(1).Name()).To(Equal("TLBHierarchy.L1TLB[1]"))
		Expect(h.L1(1).CoreID()).To(Equal(uint64(1)))
		Expect(h.L2().Name()).To(Equal("TLBHierarchy.L2TLB"))
	})

	It("should translate a miss through the page walker", func() {
		req := newReq(0x5678, 0)

		Expect(h.L1(0).ProcessAccess(req, now)).To(Equal(Miss))
		tickUntil(func() bool { return h.L1(0).NumPendingResponses() > 0 })

		rsp, _ := h.L1(0).PopResponse()
		Expect(rsp).To(BeIdenticalTo(req))
		Expect(rsp.GetPAddr()).To(Equal(uint64(0x100678)))
		Expect(now).To(Equal(uint64(8)))
		Expect(h.IsIdle()).To(BeTrue())

		second := newReq(0x5000, 0)
		Expect(h.L1(0).ProcessAccess(second, now)).To(Equal(Hit))
		Expect(second.GetPAddr()).To(Equal(uint64(0x100000)))
	})

	It("should walk a page once for all the cores", func() {
		req0 := newReq(0x5000, 0)
		req1 := newReq(0x5010, 1)
		h.L1(0).ProcessAccess(req0, now)
		h.L1(1).ProcessAccess(req1, now)

		tickUntil(func() bool {
			return h.L1(0).NumPendingResponses() > 0 &&
				h.L1(1).NumPendingResponses() > 0
		})

		Expect(walker.NumWalks()).To(Equal(uint64(1)))
		Expect(req0.GetPAddr()).To(Equal(uint64(0x100000)))
		Expect(req1.GetPAddr()).To(Equal(uint64(0x100010)))

		Expect(h.L2().Stats()).To(Equal(Stats{
			Accesses: 2, Misses: 1, PendingHits: 1,
		}))
		Expect(h.L1Stats()).To(Equal(Stats{Accesses: 2, Misses: 2}))
		Expect(h.Stats().Accesses).To(Equal(uint64(4)))
	})

	It("should flush all the translations", func() {
		h.L1(0).ProcessAccess(newReq(0x5000, 0), now)
		tickUntil(func() bool { return h.L1(0).NumPendingResponses() > 0 })

		Expect(h.Flush()).To(Equal(2))
		Expect(h.L1(0).ProcessAccess(newReq(0x5000, 0), now)).To(Equal(Miss))
	})

	It("should log the events of the units", func() {
		buf := new(bytes.Buffer)
		hook := NewLogHook(log.New(buf, "", 0))
		h.L1(0).AcceptHook(hook)
		h.L2().AcceptHook(hook)

		h.L1(0).ProcessAccess(newReq(0x5000, 0), now)
		tickUntil(func() bool { return h.L1(0).NumPendingResponses() > 0 })

		out := buf.String()
		Expect(out).To(ContainSubstring("TLBHierarchy.L1TLB[0], miss"))
		Expect(out).To(ContainSubstring("TLBHierarchy.L2TLB, fill, 0x5000 -> 0x100000"))
		Expect(out).To(ContainSubstring("TLBHierarchy.L1TLB[0], respond"))
	})
})

type taskRecorder struct {
	started []tracing.Task
	steps   []string
	ended   []tracing.Task
}

func (r *taskRecorder) StartTask(task tracing.Task) {
	r.started = append(r.started, task)
}

func (r *taskRecorder) StepTask(task tracing.Task) {
	r.steps = append(r.steps, task.Steps[0].What)
}

func (r *taskRecorder) EndTask(task tracing.Task) {
	r.ended = append(r.ended, task)
}

var _ = Describe("Hierarchy tracing", func() {
	It("should trace the task of a request at each level", func() {
		walker := pagewalk.MakeBuilder().
			WithLatency(3).
			WithAutoPageAllocation(true).
			Build("Walker")
		h := MakeBuilder().WithPageWalker(walker).Build("TLBHierarchy")

		l1Tracer := &taskRecorder{}
		l2Tracer := &taskRecorder{}
		tracing.CollectTrace(h.L1(0), l1Tracer)
		tracing.CollectTrace(h.L2(), l2Tracer)

		req := newReq(0x5000, 0)
		h.L1(0).ProcessAccess(req, 0)

		for now := uint64(0); h.L1(0).NumPendingResponses() == 0; now++ {
			Expect(now).To(BeNumerically("<", 100))
			h.Tick(now)
		}

		Expect(l1Tracer.started).To(HaveLen(1))
		Expect(l1Tracer.started[0].ID).
			To(Equal(req.ID + "@TLBHierarchy.L1TLB[0]"))
		Expect(l1Tracer.started[0].ParentID).To(Equal(req.ID))
		Expect(l1Tracer.steps).To(Equal([]string{"miss", "forward", "fill"}))
		Expect(l1Tracer.ended).To(HaveLen(1))

		Expect(l2Tracer.started).To(HaveLen(1))
		Expect(l2Tracer.steps).To(Equal([]string{"miss", "walk"}))
		Expect(l2Tracer.ended).To(HaveLen(1))
	})
})

var _ = Describe("Builder", func() {
	It("should reject different page sizes", func() {
		l1 := DefaultL1Config()
		l1.PageSize = 8192

		err := MakeBuilder().WithL1Config(l1).Validate()

		Expect(err).To(MatchError(ContainSubstring("page size")))
	})

	It("should reject invalid configs", func() {
		l2 := DefaultL2Config()
		l2.NumWays = 0

		Expect(MakeBuilder().WithL2Config(l2).Validate()).NotTo(Succeed())
		Expect(MakeBuilder().WithNumCores(0).Validate()).NotTo(Succeed())
	})

	It("should panic without a page walker", func() {
		Expect(func() { MakeBuilder().Build("TLBHierarchy") }).To(Panic())
	})

	It("should panic on an invalid config", func() {
		l2 := DefaultL2Config()
		l2.NumSets = 3

		Expect(func() {
			MakeBuilder().
				WithL2Config(l2).
				WithPageWalker(pagewalk.MakeBuilder().Build("Walker")).
				Build("TLBHierarchy")
		}).To(Panic())
	})

	It("should build with the defaults", func() {
		h := MakeBuilder().
			WithPageWalker(pagewalk.MakeBuilder().Build("Walker")).
			Build("TLBHierarchy")

		Expect(h.IsIdle()).To(BeTrue())
		Expect(h.L1(0).Stats()).To(Equal(Stats{}))
	})
})
