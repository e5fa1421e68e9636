package implementation

import (
	"context"

	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoReadingRepository struct {
	coll *mongo.Collection
}

func NewMongoReadingRepository(coll *mongo.Collection) *MongoReadingRepository {
	return &MongoReadingRepository{coll: coll}
}

// EnsureIndexes creates the unique (deviceId, timestamp) index
func (r *MongoReadingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: aqmmodels.DeviceIDKey, Value: 1}, {Key: aqmmodels.TimestampKey, Value: -1}},
		Options: options.Index().SetUnique(true).SetName("device_ts"),
	})
	return err
}

func (r *MongoReadingRepository) PutReading(ctx context.Context, reading aqmmodels.Reading) error {
	filter := bson.D{
		{Key: aqmmodels.DeviceIDKey, Value: reading.DeviceID},
		{Key: aqmmodels.TimestampKey, Value: reading.Timestamp},
	}
	doc := bson.M(reading.Item())

	_, err := r.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return &interfaces.StoreWriteError{Err: err}
	}
	return nil
}

func (r *MongoReadingRepository) QueryByDevice(ctx context.Context, deviceID string, sinceTs int64) ([]aqmmodels.Reading, error) {
	if deviceID == "" {
		return nil, interfaces.ErrDeviceIDRequired
	}

	filter := bson.D{
		{Key: aqmmodels.DeviceIDKey, Value: deviceID},
		{Key: aqmmodels.TimestampKey, Value: bson.D{{Key: "$gte", Value: sinceTs}}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: aqmmodels.TimestampKey, Value: -1}}).
		SetLimit(int64(interfaces.MaxDeviceQueryItems))

	readings, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpQueryByDevice, Err: err}
	}
	return readings, nil
}

func (r *MongoReadingRepository) ScanSince(ctx context.Context, sinceTs int64) ([]aqmmodels.Reading, error) {
	filter := bson.D{{Key: aqmmodels.TimestampKey, Value: bson.D{{Key: "$gte", Value: sinceTs}}}}

	readings, err := r.find(ctx, filter, options.Find())
	if err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpScanSince, Err: err}
	}
	return readings, nil
}

func (r *MongoReadingRepository) ListDeviceIDs(ctx context.Context) ([]string, error) {
	values, err := r.coll.Distinct(ctx, aqmmodels.DeviceIDKey, bson.D{})
	if err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpListDeviceIDs, Err: err}
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return distinctSorted(ids), nil
}

func (r *MongoReadingRepository) Ping(ctx context.Context) error {
	if err := r.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return &interfaces.StoreReadError{Op: interfaces.OpPing, Err: err}
	}
	return nil
}

func (r *MongoReadingRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]aqmmodels.Reading, error) {
	cursor, err := r.coll.Find(ctx, filter, opts.SetProjection(bson.D{{Key: "_id", Value: 0}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	readings := make([]aqmmodels.Reading, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		reading, err := aqmmodels.ReadingFromItem(fromBSON(doc).(map[string]interface{}))
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, cursor.Err()
}

// fromBSON converts decoded documents and arrays into plain maps and slices
// so metric values serialize the same way for every backend.
func fromBSON(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = fromBSON(val)
		}
		return out
	case primitive.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = fromBSON(val)
		}
		return out
	default:
		return v
	}
}
