package model

import "time"

// Vehicle is a car registered by a driver along with the URLs of the
// documents uploaded for it.
//
// Fields:
//  ID               – primary key (uuid).
//  OwnerID          – driver that registered the vehicle.
//  Plate            – licence plate, stored upper-case, unique.
//  Brand/Model      – make and model.
//  Color            – colour as entered.
//  Year             – model year.
//  Capacity         – passenger capacity.
//  PropertyCardURL  – ownership card document.
//  LicenseURL       – driving licence document.
//  InsuranceURL     – mandatory insurance document.
//  CreatedAt        – registration timestamp.
type Vehicle struct {
    ID              string    `json:"id"`
    OwnerID         string    `json:"owner_id"`
    Plate           string    `json:"plate"`
    Brand           string    `json:"brand"`
    Model           string    `json:"model"`
    Color           string    `json:"color"`
    Year            int       `json:"year"`
    Capacity        int       `json:"capacity"`
    PropertyCardURL string    `json:"property_card_url"`
    LicenseURL      string    `json:"license_url"`
    InsuranceURL    string    `json:"insurance_url"`
    CreatedAt       time.Time `json:"created_at"`
}

// DefaultVehicleCapacity is used when the registration form leaves the
// capacity empty.
const DefaultVehicleCapacity = 4
