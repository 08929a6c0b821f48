package mem

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Storage", func() {
	It("should read and write in single unit", func() {
		storage := NewStorage(4096)
		Expect(storage.Write(0, []byte{1, 2, 3, 4})).To(Succeed())

		res, _ := storage.Read(0, 2)
		Expect(res).To(Equal([]byte{1, 2}))

		res, _ = storage.Read(1, 2)
		Expect(res).To(Equal([]byte{2, 3}))
	})

	It("should read and write across units", func() {
		storage := NewStorage(8192)
		Expect(storage.Write(4094, []byte{1, 2, 3, 4})).To(Succeed())

		res, _ := storage.Read(4094, 4)
		Expect(res).To(Equal([]byte{1, 2, 3, 4}))
		Expect(storage.NumAllocatedUnits()).To(Equal(2))
	})

	It("should read zeros without allocating", func() {
		storage := NewStorage(1 * GB)

		res, err := storage.Read(512*MB, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(make([]byte, 8)))
		Expect(storage.NumAllocatedUnits()).To(BeZero())
	})

	It("should only write strobed bytes", func() {
		storage := NewStorage(4096)
		Expect(storage.Write(0, []byte{1, 1, 1, 1})).To(Succeed())
		Expect(storage.WriteStrobed(0, []byte{9, 9, 9, 9}, 0b0101)).To(Succeed())

		res, _ := storage.Read(0, 4)
		Expect(res).To(Equal([]byte{9, 1, 9, 1}))
	})

	It("should return error if accessing over the capacity", func() {
		storage := NewStorage(4096)

		err := storage.Write(4095, []byte{1, 2})
		var accessErr *AccessError
		Expect(err).To(BeAssignableToTypeOf(accessErr))
		Expect(err.Error()).To(ContainSubstring("beyond the storage capacity"))

		_, err = storage.Read(4097, 1)
		Expect(err).To(HaveOccurred())

		Expect(storage.WriteStrobed(5000, []byte{1}, 1)).NotTo(Succeed())
	})
})
