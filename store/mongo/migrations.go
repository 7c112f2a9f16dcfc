package mongo

import (
	"context"
	"fmt"

	"github.com/xraph/grove/drivers/mongodriver/mongomigrate"
	"github.com/xraph/grove/migrate"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/gradebook/grade"
)

// Migrations is the grove migration group for the gradebook store (MongoDB).
var Migrations = migrate.NewGroup("gradebook")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_indexes",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				mexec, ok := exec.(*mongomigrate.Executor)
				if !ok {
					return fmt.Errorf("expected mongomigrate executor, got %T", exec)
				}
				for col, models := range migrationIndexes() {
					if _, err := mexec.DB().Collection(col).Indexes().CreateMany(ctx, models); err != nil {
						return fmt.Errorf("create %s indexes: %w", col, err)
					}
				}
				return nil
			},
		},
	)
}

// migrationIndexes returns the index definitions for all gradebook collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	indexes := map[string][]mongod.IndexModel{
		colStudents: {
			{
				Keys:    bson.D{{Key: "email_address", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colAudit: {
			{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "student_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "operation", Value: 1}}},
		},
	}
	for _, subj := range grade.Subjects {
		indexes[subj.Table()] = []mongod.IndexModel{
			{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "_id", Value: 1}}},
		}
	}
	return indexes
}
