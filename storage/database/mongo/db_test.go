package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/stretchr/testify/require"
)

func mockOptions() *mtest.Options {
	return mtest.NewOptions().ClientType(mtest.Mock)
}

func newMockDB(mt *mtest.T) *DB {
	return &DB{client: mt.Client, db: mt.DB}
}

// updateResponse is the server reply to an update matching n documents and modifying nModified of them.
func updateResponse(n, nModified int32) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: nModified})
}

// countResponse is the server reply to CountDocuments.
func countResponse(mt *mtest.T, n int32) bson.D {
	ns := mt.DB.Name() + "." + mt.Coll.Name()
	if n == 0 {
		return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: n}})
}

func emptyCursor(mt *mtest.T) bson.D {
	return mtest.CreateCursorResponse(0, mt.DB.Name()+"."+mt.Coll.Name(), mtest.FirstBatch)
}

type updateStatement struct {
	Q bson.M `bson:"q"`
	U bson.M `bson:"u"`
}

// nextUpdate pops the next started command, which must be an update, and returns its first statement.
func nextUpdate(mt *mtest.T) updateStatement {
	mt.Helper()
	evt := mt.GetStartedEvent()
	require.NotNil(mt, evt)
	require.Equal(mt, "update", evt.CommandName)

	var stmt updateStatement
	doc := evt.Command.Lookup("updates").Array().Index(0).Value().Document()
	require.NoError(mt, bson.Unmarshal(doc, &stmt))
	return stmt
}

// nextFilter pops the next started command and returns its filter.
func nextFilter(mt *mtest.T, command string) bson.M {
	mt.Helper()
	evt := mt.GetStartedEvent()
	require.NotNil(mt, evt)
	require.Equal(mt, command, evt.CommandName)

	var filter bson.M
	require.NoError(mt, bson.Unmarshal(evt.Command.Lookup("filter").Document(), &filter))
	return filter
}
