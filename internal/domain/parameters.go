package domain

// ProjectParameters is the full urban-design parameter set supplied at
// project creation. The pipeline treats it as opaque except where a step
// reads a specific sub-tree (the streets generator reads
// Neighbourhood.PublicRoads).
type ProjectParameters struct {
	Neighbourhood    Neighbourhood    `json:"neighbourhood"`
	Tissue           Tissue           `json:"tissue"`
	StarterBuildings StarterBuildings `json:"starter_buildings"`
}

type Neighbourhood struct {
	PublicRoads         PublicRoads         `json:"public_roads"`
	OnGridPartitions    OnGridPartitions    `json:"on_grid_partitions"`
	OffGridPartitions   OffGridPartitions   `json:"off_grid_partitions"`
	UrbanBlockStructure UrbanBlockStructure `json:"urban_block_structure"`
	PublicSpaces        PublicSpaces        `json:"public_spaces"`
}

type PublicRoads struct {
	WidthOfArteriesM    float64 `json:"width_of_arteries_m"`
	WidthOfSecondariesM float64 `json:"width_of_secondaries_m"`
	WidthOfLocalsM      float64 `json:"width_of_locals_m"`
}

type OnGridPartitions struct {
	DepthAlongArteriesM    float64 `json:"depth_along_arteries_m"`
	DepthAlongSecondariesM float64 `json:"depth_along_secondaries_m"`
	DepthAlongLocalsM      float64 `json:"depth_along_locals_m"`
}

type OffGridPartitions struct {
	ClusterDepthM       float64 `json:"cluster_depth_m"`
	ClusterSizeLots     int     `json:"cluster_size_lots"`
	ClusterWidthM       float64 `json:"cluster_width_m"`
	LotDepthAlongPathM  float64 `json:"lot_depth_along_path_m"`
	LotDepthAroundYardM float64 `json:"lot_depth_around_yard_m"`
}

type BlockStructureConfig struct {
	OffGridClustersInDepthM float64 `json:"off_grid_clusters_in_depth_m"`
	OffGridClustersInWidthM float64 `json:"off_grid_clusters_in_width_m"`
}

type UrbanBlockStructure struct {
	AlongArteries    BlockStructureConfig `json:"along_arteries"`
	AlongSecondaries BlockStructureConfig `json:"along_secondaries"`
	AlongLocals      BlockStructureConfig `json:"along_locals"`
}

type OpenSpaces struct {
	OpenSpacePercentage float64 `json:"open_space_percentage"`
}

type Amenities struct {
	AmenitiesPercentage float64 `json:"amenities_percentage"`
}

type StreetSection struct {
	SidewalkWidthM float64 `json:"sidewalk_width_m"`
}

type Trees struct {
	ShowTreesFrontend  bool    `json:"show_trees_frontend"`
	TreeSpacingM       float64 `json:"tree_spacing_m"`
	InitialTreeHeightM float64 `json:"initial_tree_height_m"`
	FinalTreeHeightM   float64 `json:"final_tree_height_m"`
}

type PublicSpaces struct {
	OpenSpaces    OpenSpaces    `json:"open_spaces"`
	Amenities     Amenities     `json:"amenities"`
	StreetSection StreetSection `json:"street_section"`
	Trees         Trees         `json:"trees"`
}

type LotConfig struct {
	DepthM         float64 `json:"depth_m"`
	WidthM         float64 `json:"width_m"`
	FrontSetbackM  float64 `json:"front_setback_m"`
	SideMarginsM   float64 `json:"side_margins_m"`
	RearSetbackM   float64 `json:"rear_setback_m"`
	NumberOfFloors int     `json:"number_of_floors"`
}

type OffGridClusterType1 struct {
	AccessPathWidthOnGridM float64 `json:"access_path_width_on_grid_m"`
	InternalPathWidthM     float64 `json:"internal_path_width_m"`
	OpenSpaceWidthM        float64 `json:"open_space_width_m"`
	OpenSpaceLengthM       float64 `json:"open_space_length_m"`
	LotWidthM              float64 `json:"lot_width_m"`
	FrontSetbackM          float64 `json:"front_setback_m"`
	SideMarginsM           float64 `json:"side_margins_m"`
	RearSetbackM           float64 `json:"rear_setback_m"`
	NumberOfFloors         int     `json:"number_of_floors"`
}

type OffGridClusterType2 struct {
	InternalPathWidthM      float64 `json:"internal_path_width_m"`
	CulDeSacWidthM          float64 `json:"cul_de_sac_width_m"`
	LotWidthM               float64 `json:"lot_width_m"`
	LotDepthBehindCulDeSacM float64 `json:"lot_depth_behind_cul_de_sac_m"`
}

type CornerBonus struct {
	Description          string  `json:"description,omitempty"`
	WithArteryPercent    float64 `json:"with_artery_percent"`
	WithSecondaryPercent float64 `json:"with_secondary_percent"`
	WithLocalPercent     float64 `json:"with_local_percent"`
}

type FireProtection struct {
	FireProofPartitionsWith6mMargins bool `json:"fire_proof_partitions_with_6m_margins"`
}

type Tissue struct {
	OnGridLotsOnArteries    LotConfig           `json:"on_grid_lots_on_arteries"`
	OnGridLotsOnSecondaries LotConfig           `json:"on_grid_lots_on_secondaries"`
	OnGridLotsOnLocals      LotConfig           `json:"on_grid_lots_on_locals"`
	OffGridClusterType1     OffGridClusterType1 `json:"off_grid_cluster_type_1"`
	OffGridClusterType2     OffGridClusterType2 `json:"off_grid_cluster_type_2"`
	CornerBonus             CornerBonus         `json:"corner_bonus"`
	FireProtection          FireProtection      `json:"fire_protection"`
}

type InitialBuildingPercent struct {
	InitialWidthPercent  float64 `json:"initial_width_percent"`
	InitialDepthPercent  float64 `json:"initial_depth_percent"`
	InitialFloorsPercent float64 `json:"initial_floors_percent"`
}

type StarterBuildingsOnArteries struct {
	CornerWithOtherArtery InitialBuildingPercent `json:"corner_with_other_artery"`
	CornerWithSecondary   InitialBuildingPercent `json:"corner_with_secondary"`
	CornerWithTertiary    InitialBuildingPercent `json:"corner_with_tertiary"`
	RegularLot            InitialBuildingPercent `json:"regular_lot"`
}

type StarterBuildingsOnSecondaries struct {
	CornerWithOtherSecondary InitialBuildingPercent `json:"corner_with_other_secondary"`
	CornerWithTertiary       InitialBuildingPercent `json:"corner_with_tertiary"`
	RegularLot               InitialBuildingPercent `json:"regular_lot"`
}

type StarterBuildingsOnLocals struct {
	CornerWithOtherLocal InitialBuildingPercent `json:"corner_with_other_local"`
	RegularLot           InitialBuildingPercent `json:"regular_lot"`
}

type StarterBuildings struct {
	OnGridLotsOnArteries    StarterBuildingsOnArteries    `json:"on_grid_lots_on_arteries"`
	OnGridLotsOnSecondaries StarterBuildingsOnSecondaries `json:"on_grid_lots_on_secondaries"`
	OnGridLotsOnLocals      StarterBuildingsOnLocals      `json:"on_grid_lots_on_locals"`
	OffGridClusterType1     InitialBuildingPercent        `json:"off_grid_cluster_type_1"`
	OffGridClusterType2     InitialBuildingPercent        `json:"off_grid_cluster_type_2"`
}
