// Package seed bootstraps a development database with a small set of
// parks and rides so aggregation has something to chew on.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	parkdomain "github.com/czei/themeparkhallofshame-sub001/internal/parkmeta/domain"
)

type parkSeed struct {
	slug        string
	name        string
	timezone    string
	isDisney    bool
	isUniversal bool
	rides       []rideSeed
}

type rideSeed struct {
	name string
	tier int
}

var sampleParks = []parkSeed{
	{
		slug: "magic-kingdom", name: "Magic Kingdom", timezone: "America/New_York", isDisney: true,
		rides: []rideSeed{
			{"Space Mountain", parkdomain.TierFlagship},
			{"Big Thunder Mountain Railroad", parkdomain.TierMajor},
			{"The Magic Carpets of Aladdin", parkdomain.TierMinor},
		},
	},
	{
		slug: "universal-studios-florida", name: "Universal Studios Florida", timezone: "America/New_York", isUniversal: true,
		rides: []rideSeed{
			{"Revenge of the Mummy", parkdomain.TierFlagship},
			{"E.T. Adventure", parkdomain.TierMajor},
		},
	},
	{
		slug: "cedar-point", name: "Cedar Point", timezone: "America/New_York",
		rides: []rideSeed{
			{"Millennium Force", parkdomain.TierFlagship},
			{"Gemini", parkdomain.TierMajor},
			{"Cedar Creek Mine Ride", parkdomain.TierMinor},
		},
	},
}

// EnsureSampleParks inserts the sample catalog if it is missing.
// Reruns are no-ops; parks are matched by slug.
func EnsureSampleParks(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sample := range sampleParks {
			if err := ensureParkTx(ctx, tx, node, sample); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureParkTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, sample parkSeed) error {
	var park parkdomain.Park
	err := tx.WithContext(ctx).Where("slug = ?", sample.slug).First(&park).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		park = parkdomain.Park{
			ID:          node.Generate(),
			Slug:        sample.slug,
			Name:        sample.name,
			Timezone:    sample.timezone,
			IsDisney:    sample.isDisney,
			IsUniversal: sample.isUniversal,
			Active:      true,
		}
		if err := tx.WithContext(ctx).Create(&park).Error; err != nil {
			return err
		}
	}

	for _, ride := range sample.rides {
		var existing parkdomain.Ride
		err := tx.WithContext(ctx).
			Where("park_id = ? AND name = ?", park.ID, ride.name).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		record := parkdomain.Ride{
			ID:     node.Generate(),
			ParkID: park.ID,
			Name:   ride.name,
			Tier:   ride.tier,
			Active: true,
		}
		if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}
