package db_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/mishaschwartz/Magpie/pkg/api/repos"
	. "github.com/mishaschwartz/Magpie/pkg/api/repos/reposbehaviors"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"

	"github.com/mishaschwartz/Magpie/pkg/api/db"
)

var _ = Describe("DataService", func() {
	var (
		store *db.DataService
		conn  *sqlx.DB
	)

	BeforeEach(func() {
		var err error

		conn, err = testDB.Connect()
		Expect(err).NotTo(HaveOccurred())

		store = db.NewDataService(conn)
	})

	AfterEach(func() {
		Expect(conn.Close()).To(Succeed())

		// Children carry higher ids than their parents, so a reverse-id
		// delete satisfies the self-referencing foreign key.
		err := testDB.Truncate(
			"DELETE FROM permission_entry",
			"DELETE FROM membership",
			"DELETE FROM sync_state_remote_id",
			"DELETE FROM sync_state",
			"DELETE FROM resource ORDER BY id DESC",
		)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("as a resource repo", func() {
		BehavesLikeAResourceRepo(func() repos.ResourceRepo { return store })
	})

	Describe("as a permission entry repo", func() {
		BehavesLikeAPermissionEntryRepo(
			func() repos.PermissionEntryRepo { return store },
			func() repos.ResourceRepo { return store },
		)
	})

	Describe("as a membership repo", func() {
		BehavesLikeAMembershipRepo(func() repos.MembershipRepo { return store })
	})

	Describe("as a sync repo", func() {
		BehavesLikeASyncRepo(func() repos.SyncRepo { return store })
	})
})
