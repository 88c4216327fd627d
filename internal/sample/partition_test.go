package sample_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spinsim/internal/sample"
)

func numbered(n int) *sample.Store {
	spins := make([]sample.Spin, n)
	for i := range spins {
		spins[i] = sample.Spin{X: float64(i), M0: 1}
	}
	return sample.FromSpins([3]sample.Axis{{Res: 1}, {Res: 1}, {Res: 1}}, spins)
}

var _ = Describe("Partition", func() {
	DescribeTable("reconstructs the ensemble in order",
		func(n, count int) {
			s := numbered(n)
			parts := sample.Partitions(s, count)
			Expect(parts).To(HaveLen(count))

			var xs []float64
			for _, p := range parts {
				Expect(p).NotTo(BeNil())
				for i := 0; i < p.Len(); i++ {
					xs = append(xs, p.Spin(i).X)
				}
			}
			Expect(xs).To(HaveLen(n))
			for i, x := range xs {
				Expect(x).To(Equal(float64(i)))
			}
		},
		Entry("even split", 12, 4),
		Entry("uneven split", 10, 3),
		Entry("one spin per partition", 7, 7),
		Entry("single partition", 5, 1),
		Entry("large remainder", 101, 10),
	)

	It("gives the first n%count partitions one extra spin", func() {
		s := numbered(10)
		sizes := []int{}
		for i := 1; i <= 4; i++ {
			sizes = append(sizes, sample.Partition(s, i, 4).Len())
		}
		Expect(sizes).To(Equal([]int{3, 3, 2, 2}))
	})

	It("reports inclusive ranges", func() {
		begin, end, ok := sample.Range(10, 2, 3)
		Expect(ok).To(BeTrue())
		Expect(begin).To(Equal(4))
		Expect(end).To(Equal(6))

		begin, end, ok = sample.Range(10, 3, 3)
		Expect(ok).To(BeTrue())
		Expect(begin).To(Equal(7))
		Expect(end).To(Equal(9))
	})

	DescribeTable("rejects impossible splits",
		func(n, index, count int) {
			Expect(sample.Partition(numbered(n), index, count)).To(BeNil())
		},
		Entry("index above count", 10, 4, 3),
		Entry("more partitions than spins", 3, 1, 4),
		Entry("zero index", 10, 0, 3),
		Entry("zero count", 10, 1, 0),
		Entry("empty store", 0, 1, 1),
	)

	It("returns independent copies", func() {
		s := numbered(4)
		p := sample.Partition(s, 1, 2)
		p.Set(0, sample.Spin{X: 99})
		Expect(s.Spin(0).X).To(Equal(0.0))
		Expect(p.Resolution()).To(Equal(s.Resolution()))
	})

	It("turns a lattice into a spin list", func() {
		axes := [3]sample.Axis{{Count: 2, Res: 1, Offset: 0.5}, {Count: 2, Res: 2}, {Count: 1, Res: 3}}
		spins := []sample.Spin{{X: 0, M0: 1}, {X: 1, M0: 1}, {X: 2, M0: 1}, {X: 3, M0: 1}}
		s := sample.FromSpins(axes, spins)
		Expect(s.Gridded()).To(BeTrue())

		p := sample.Partition(s, 2, 2)
		Expect(p.Gridded()).To(BeFalse())
		Expect(p.Resolution()).To(Equal([3]float64{1, 2, 3}))
		Expect(p.Axes()[0].Count).To(Equal(2))
		Expect(p.Axes()[0].Offset).To(Equal(0.5))
		Expect(p.Axes()[2].Count).To(Equal(0))
	})

	It("keeps sample-file indices across a shuffle", func() {
		s := numbered(10)
		s.Shuffle(7)
		for _, p := range sample.Partitions(s, 3) {
			for j := 0; j < p.Len(); j++ {
				Expect(p.Origin(j)).To(Equal(int(p.Spin(j).X)))
			}
		}
	})

	It("numbers unshuffled partitions by their range", func() {
		p := sample.Partition(numbered(10), 2, 3)
		begin, _, _ := sample.Range(10, 2, 3)
		for j := 0; j < p.Len(); j++ {
			Expect(p.Origin(j)).To(Equal(begin + j))
		}
	})

	It("returns nil from Partitions for an invalid count", func() {
		Expect(sample.Partitions(numbered(2), 3)).To(BeNil())
		Expect(sample.Partitions(numbered(2), 0)).To(BeNil())
	})
})
